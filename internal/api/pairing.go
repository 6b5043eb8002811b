package api

import (
	"crypto/rand"
	"fmt"
	"math/big"
	"net/http"
	"sync"
	"time"
)

// pairingCodeDigits is the length of a pairing code.
const pairingCodeDigits = 6

// pairingCodes issues short-lived numeric codes that a device presents in
// its REGISTER frame to become paired. Codes are single use and expire
// after the configured TTL; staff read them off the management UI.
type pairingCodes struct {
	ttl   time.Duration
	mu    sync.Mutex
	codes map[string]time.Time // code -> expiry
}

func newPairingCodes(ttl time.Duration) *pairingCodes {
	return &pairingCodes{
		ttl:   ttl,
		codes: make(map[string]time.Time),
	}
}

// Mint creates a fresh code. Expired codes are swept opportunistically.
func (p *pairingCodes) Mint() (code string, expiresAt time.Time) {
	p.mu.Lock()
	defer p.mu.Unlock()

	now := time.Now()
	for c, exp := range p.codes {
		if now.After(exp) {
			delete(p.codes, c)
		}
	}

	code = generatePairingCode()
	expiresAt = now.Add(p.ttl)
	p.codes[code] = expiresAt
	return code, expiresAt
}

// Redeem consumes a code. Returns false for unknown or expired codes.
func (p *pairingCodes) Redeem(code string) bool {
	p.mu.Lock()
	defer p.mu.Unlock()

	exp, ok := p.codes[code]
	if !ok {
		return false
	}
	delete(p.codes, code)
	return time.Now().Before(exp)
}

// generatePairingCode returns a zero-padded random numeric code.
func generatePairingCode() string {
	max := big.NewInt(1)
	for i := 0; i < pairingCodeDigits; i++ {
		max.Mul(max, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, max)
	if err != nil {
		// crypto/rand failure is unrecoverable for code generation.
		panic(fmt.Sprintf("generating pairing code: %v", err))
	}
	return fmt.Sprintf("%0*d", pairingCodeDigits, n)
}

// handleCreatePairingCode mints a pairing code for a new device.
func (s *Server) handleCreatePairingCode(w http.ResponseWriter, _ *http.Request) {
	code, expiresAt := s.pairing.Mint()
	writeJSON(w, http.StatusCreated, map[string]any{
		"code":       code,
		"expires_at": expiresAt.UTC().Format(time.RFC3339),
	})
}
