package fetcher

import (
	"context"
	"crypto/x509"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"strings"
	"time"

	tls "github.com/refraction-networking/utls"
	"github.com/sreekar9601/getcovered-technical-task/models"
)

const chromeUA = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/131.0.0.0 Safari/537.36"

// Read body with a 10 MB limit to prevent unbounded memory use.
const maxBodyBytes = 10 << 20

var errTooManyRedirects = errors.New("too many redirects")

// chromeH1Spec is a Chrome-like TLS ClientHello with ALPN forced to
// http/1.1 only. Computed once at init time and reused for every connection.
var chromeH1Spec tls.ClientHelloSpec

func init() {
	spec, err := tls.UTLSIdToSpec(tls.HelloChrome_Auto)
	if err != nil {
		return
	}
	// Replace h2 with http/1.1 only in the ALPN extension so the server
	// never negotiates HTTP/2, which Go's http.Transport cannot frame
	// over a utls connection.
	for i, ext := range spec.Extensions {
		if alpn, ok := ext.(*tls.ALPNExtension); ok {
			alpn.AlpnProtocols = []string{"http/1.1"}
			spec.Extensions[i] = alpn
			break
		}
	}
	chromeH1Spec = spec
}

// StaticFetcher performs a single lightweight GET with a browser-like
// identity (Chrome headers and TLS fingerprint). No JavaScript execution.
type StaticFetcher struct {
	client *http.Client
}

// NewStaticFetcher creates a StaticFetcher following at most maxRedirects
// redirects per request.
func NewStaticFetcher(maxRedirects int) *StaticFetcher {
	if maxRedirects <= 0 {
		maxRedirects = 10
	}
	transport := &http.Transport{
		DialTLSContext: func(ctx context.Context, network, addr string) (net.Conn, error) {
			dialer := &net.Dialer{Timeout: 10 * time.Second}
			conn, err := dialer.DialContext(ctx, network, addr)
			if err != nil {
				return nil, err
			}
			host, _, _ := net.SplitHostPort(addr)
			tlsConn := tls.UClient(conn, &tls.Config{ServerName: host}, tls.HelloCustom)
			if err := tlsConn.ApplyPreset(&chromeH1Spec); err != nil {
				conn.Close()
				return nil, fmt.Errorf("static: apply tls spec: %w", err)
			}
			if err := tlsConn.HandshakeContext(ctx); err != nil {
				conn.Close()
				return nil, err
			}
			return tlsConn, nil
		},
		ForceAttemptHTTP2: false,
	}
	return &StaticFetcher{
		client: &http.Client{
			Transport: transport,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= maxRedirects {
					return errTooManyRedirects
				}
				return nil
			},
		},
	}
}

func (f *StaticFetcher) Name() string { return "static" }

// Fetch issues one GET and classifies the outcome into the retrieval error
// taxonomy. Non-2xx/3xx statuses and non-HTML content types are failures
// so the orchestrator can escalate to the browser path.
func (f *StaticFetcher) Fetch(ctx context.Context, req *Request) (*Result, error) {
	if req.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, req.Timeout)
		defer cancel()
	}

	start := time.Now()

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, req.URL, nil)
	if err != nil {
		return nil, models.NewDetectError(models.ErrCodeInvalidURL, "failed to build request", err)
	}

	httpReq.Header.Set("User-Agent", chromeUA)
	httpReq.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/avif,image/webp,*/*;q=0.8")
	httpReq.Header.Set("Accept-Language", "en-US,en;q=0.9")
	httpReq.Header.Set("Accept-Encoding", "identity")
	httpReq.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := f.client.Do(httpReq)
	if err != nil {
		return nil, classifyTransportError(err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return nil, models.NewBlockedError(resp.StatusCode, nil)
	}

	ct := resp.Header.Get("Content-Type")
	if !isHTMLContentType(ct) {
		return nil, models.NewDetectError(
			models.ErrCodeUnsupportedContent,
			fmt.Sprintf("response is not HTML (content-type: %s)", ct),
			nil,
		)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, classifyTransportError(err)
	}

	markup := string(body)
	finalURL := resp.Request.URL.String()

	return &Result{
		HTML:       markup,
		Title:      ExtractTitle(markup),
		StatusCode: resp.StatusCode,
		FinalURL:   finalURL,
		Redirected: finalURL != req.URL,
		Elapsed:    time.Since(start),
	}, nil
}

// classifyTransportError maps low-level transport failures into the
// retrieval error taxonomy.
func classifyTransportError(err error) *models.DetectError {
	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return models.NewDetectError(models.ErrCodeTimeout, "request timed out", err)
	case errors.Is(err, context.Canceled):
		return models.NewDetectError(models.ErrCodeTimeout, "request canceled", err)
	case errors.Is(err, errTooManyRedirects):
		return models.NewDetectError(models.ErrCodeNetwork, "redirect chain too long", err)
	case isTLSError(err):
		return models.NewDetectError(models.ErrCodeTLS, "TLS handshake or certificate verification failed", err)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return models.NewDetectError(models.ErrCodeTimeout, "request timed out", err)
	}
	return models.NewDetectError(models.ErrCodeNetwork, "connection failed", err)
}

func isTLSError(err error) bool {
	var (
		unknownAuth x509.UnknownAuthorityError
		hostname    x509.HostnameError
		certInvalid x509.CertificateInvalidError
	)
	if errors.As(err, &unknownAuth) || errors.As(err, &hostname) || errors.As(err, &certInvalid) {
		return true
	}
	// utls reports handshake-level failures as plain errors with a tls:
	// prefix somewhere in the chain.
	return strings.Contains(err.Error(), "tls:") || strings.Contains(err.Error(), "x509:")
}

func isHTMLContentType(ct string) bool {
	ct = strings.ToLower(ct)
	return strings.Contains(ct, "text/html") || strings.Contains(ct, "application/xhtml+xml")
}
