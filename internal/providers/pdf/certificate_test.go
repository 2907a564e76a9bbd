package pdf

import (
	"bytes"
	"context"
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGenerateCertificate(t *testing.T) {
	provider := New()

	reader, err := provider.GenerateCertificate(context.Background(), CertificateData{
		ReviewerName:    "Dr. Grace Hopper",
		JournalName:     "Journal of Systems Research",
		ManuscriptTitle: "Compiling Without Compromise",
		ReviewerNumber:  2,
		SubmittedAt:     "3 March 2026",
		CertificateID:   "1234567890",
	})
	require.NoError(t, err)

	doc, err := io.ReadAll(reader)
	require.NoError(t, err)
	assert.True(t, bytes.HasPrefix(doc, []byte("%PDF")), "output must be a PDF document")
}
