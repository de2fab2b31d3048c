// Package scanner provides malware scanner implementations for the security
// screener.
package scanner

import (
	"bytes"
	"context"
	"fmt"

	"docverify/internal/verification/security"
)

// eicar is the standard antivirus test string.
var eicar = []byte(`X5O!P%@AP[4\PZX54(P^)7CC)7}$EICAR-STANDARD-ANTIVIRUS-TEST-FILE!$H+H*`)

// Signature is a named byte pattern that marks a payload as infected.
type Signature struct {
	Name    string
	Pattern []byte
}

// DefaultSignatures flags the EICAR test file and PDFs carrying embedded
// JavaScript or auto-launch actions.
func DefaultSignatures() []Signature {
	return []Signature{
		{Name: "EICAR-Test-File", Pattern: eicar},
		{Name: "PDF.EmbeddedJavaScript", Pattern: []byte("/JavaScript")},
		{Name: "PDF.LaunchAction", Pattern: []byte("/Launch")},
	}
}

// SignatureScanner matches payloads against a static signature list. It is
// the in-process fallback when no scanning service is configured.
type SignatureScanner struct {
	signatures []Signature
}

func NewSignatureScanner(signatures ...Signature) *SignatureScanner {
	if len(signatures) == 0 {
		signatures = DefaultSignatures()
	}
	return &SignatureScanner{signatures: signatures}
}

var _ security.MalwareScanner = (*SignatureScanner)(nil)

func (s *SignatureScanner) Scan(ctx context.Context, payload []byte) (security.ScanResult, error) {
	if err := ctx.Err(); err != nil {
		return security.ScanResult{}, err
	}
	for _, sig := range s.signatures {
		if bytes.Contains(payload, sig.Pattern) {
			return security.ScanResult{Clean: false, Detail: fmt.Sprintf("signature %s matched", sig.Name)}, nil
		}
	}
	return security.ScanResult{Clean: true, Detail: fmt.Sprintf("%d signatures checked", len(s.signatures))}, nil
}
