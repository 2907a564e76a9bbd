package pdf

import (
	"bytes"
	"context"
	"fmt"
	"io"

	"github.com/johnfercher/maroto/v2"
	"github.com/johnfercher/maroto/v2/pkg/components/col"
	"github.com/johnfercher/maroto/v2/pkg/components/line"
	"github.com/johnfercher/maroto/v2/pkg/components/text"
	"github.com/johnfercher/maroto/v2/pkg/config"
	"github.com/johnfercher/maroto/v2/pkg/consts/align"
	"github.com/johnfercher/maroto/v2/pkg/consts/fontstyle"
	"github.com/johnfercher/maroto/v2/pkg/props"
)

// CertificateData carries everything printed on a review certificate.
type CertificateData struct {
	ReviewerName    string
	JournalName     string
	ManuscriptTitle string
	ReviewerNumber  int
	SubmittedAt     string
	CertificateID   string
}

type PDFProvider struct{}

func New() Provider {
	return &PDFProvider{}
}

func (p *PDFProvider) GenerateCertificate(ctx context.Context, data CertificateData) (io.Reader, error) {
	cfg := config.NewBuilder().
		WithPageNumber(props.PageNumber{
			Pattern: "Page {current} of {total}",
			Place:   props.RightBottom,
		}).
		Build()

	m := maroto.New(cfg)

	m.AddRow(20,
		text.NewCol(12, "Certificate of Review", props.Text{
			Size:  22,
			Style: fontstyle.Bold,
			Align: align.Center,
		}),
	)

	m.AddRow(4, line.NewCol(12))

	m.AddRow(16,
		text.NewCol(12, "This certifies that", props.Text{
			Size:  11,
			Align: align.Center,
			Top:   6,
		}),
	)

	m.AddRow(14,
		text.NewCol(12, data.ReviewerName, props.Text{
			Size:  18,
			Style: fontstyle.Bold,
			Align: align.Center,
		}),
	)

	m.AddRow(24,
		text.NewCol(12,
			fmt.Sprintf("completed a peer review for %s of the manuscript", data.JournalName),
			props.Text{Size: 11, Align: align.Center, Top: 4},
		),
	)

	m.AddRow(14,
		text.NewCol(12, fmt.Sprintf("%q", data.ManuscriptTitle), props.Text{
			Size:  13,
			Style: fontstyle.Italic,
			Align: align.Center,
		}),
	)

	m.AddRow(30,
		col.New(6).Add(
			text.New("Reviewer slot: "+fmt.Sprintf("%d", data.ReviewerNumber), props.Text{Top: 8}),
			text.New("Review completed: "+data.SubmittedAt, props.Text{Top: 13}),
		),
		col.New(6).Add(
			text.New("Certificate ID: "+data.CertificateID, props.Text{Top: 8, Align: align.Right}),
		),
	)

	doc, err := m.Generate()
	if err != nil {
		return nil, err
	}
	return bytes.NewReader(doc.GetBytes()), nil
}
