package service

import (
	"context"
	"io"

	"github.com/bwmarrin/snowflake"
	"github.com/openpress/peerflow/internal/providers/pdf"
	"github.com/openpress/peerflow/internal/review/domain"
)

// Certificate renders a PDF certificate of review for the assigned reviewer
// of a completed review.
func (s *Service) Certificate(ctx context.Context, reviewID, reviewerID snowflake.ID) ([]byte, error) {
	review, err := s.repo.FindForReviewer(ctx, s.db, reviewID, reviewerID)
	if err != nil {
		return nil, err
	}
	if !review.Completed() {
		return nil, domain.ErrNotCompleted
	}

	manuscript, err := s.manuscripts.FindByID(ctx, s.db, review.ManuscriptID)
	if err != nil {
		return nil, err
	}
	reviewer, err := s.findUser(ctx, reviewerID)
	if err != nil {
		return nil, err
	}

	submittedAt := ""
	if review.SubmittedAt != nil {
		submittedAt = review.SubmittedAt.Format("2 January 2006")
	}

	reader, err := s.pdf.GenerateCertificate(ctx, pdf.CertificateData{
		ReviewerName:    reviewer.Name,
		JournalName:     manuscript.JournalID.String(),
		ManuscriptTitle: manuscript.Title,
		ReviewerNumber:  review.ReviewerNumber,
		SubmittedAt:     submittedAt,
		CertificateID:   review.ID.String(),
	})
	if err != nil {
		return nil, err
	}
	return io.ReadAll(reader)
}
