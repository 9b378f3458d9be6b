package security

import (
	"context"
	"crypto/tls"
	"math"
	"net"
	"net/url"
	"time"
)

const dialTimeout = 10 * time.Second

// CertInfo describes the ingest endpoint's leaf certificate.
type CertInfo struct {
	Endpoint string
	Status   string // "valid" | "expiring" | "expired" | "unreachable"
	Issuer   string
	NotAfter time.Time
	DaysLeft int
}

// Check dials the TLS endpoint and returns the state of its leaf
// certificate. Returns nil for plain-HTTP or unparseable endpoints — there
// is nothing to inspect. Verification is skipped: the point is to read the
// certificate's dates, not to authenticate the peer.
func Check(ctx context.Context, endpoint string) *CertInfo {
	u, err := url.Parse(endpoint)
	if err != nil || u.Scheme != "https" {
		return nil
	}

	info := &CertInfo{Endpoint: endpoint}

	host := u.Host
	if _, _, err := net.SplitHostPort(host); err != nil {
		host = net.JoinHostPort(host, "443")
	}

	dialCtx, cancel := context.WithTimeout(ctx, dialTimeout)
	defer cancel()

	dialer := &tls.Dialer{
		NetDialer: &net.Dialer{},
		Config:    &tls.Config{InsecureSkipVerify: true}, //nolint:gosec // date inspection only
	}

	netConn, err := dialer.DialContext(dialCtx, "tcp", host)
	if err != nil {
		info.Status = "unreachable"
		return info
	}
	conn := netConn.(*tls.Conn)
	defer conn.Close()

	peerCerts := conn.ConnectionState().PeerCertificates
	if len(peerCerts) == 0 {
		info.Status = "unreachable"
		return info
	}

	leaf := peerCerts[0]
	daysLeft := time.Until(leaf.NotAfter).Hours() / 24

	info.NotAfter = leaf.NotAfter.UTC()
	info.Issuer = leaf.Issuer.CommonName
	info.DaysLeft = int(math.Floor(daysLeft))

	switch {
	case daysLeft <= 0:
		info.Status = "expired"
	case daysLeft <= 30:
		info.Status = "expiring"
	default:
		info.Status = "valid"
	}
	return info
}
