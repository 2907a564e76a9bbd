package pdf

import (
	"bytes"
	"context"
	"io"
)

type Provider interface {
	GenerateCertificate(ctx context.Context, data CertificateData) (io.Reader, error)
}

type NoOpProvider struct{}

func (p *NoOpProvider) GenerateCertificate(ctx context.Context, data CertificateData) (io.Reader, error) {
	return bytes.NewReader(nil), nil
}
