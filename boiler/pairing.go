package boiler

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/arloliu/go-kotel/exchange"
	"github.com/arloliu/go-kotel/params"
)

// CodePath is the HTTP endpoint used for pairing.
const CodePath = "api/code"

// CodeLength is the number of letters in a pairing code.
const CodeLength = 4

// look-alike digits accepted in typed pairing codes
var codeReplacer = strings.NewReplacer(
	"0", "O", "1", "I",
	"6", "G", "7", "I",
	"2", "Z", "3", "E",
	"5", "S", "8", "B",
)

// NormalizeCode turns a typed pairing code into the form shown by the device display: digits
// resembling letters are replaced and letters are upper-cased.
func NormalizeCode(code string) (string, error) {
	code = strings.ToUpper(codeReplacer.Replace(strings.TrimSpace(code)))
	if len(code) != CodeLength {
		return "", fmt.Errorf("%w: want %d letters, got %q", ErrInvalidCode, CodeLength, code)
	}
	for i := 0; i < len(code); i++ {
		if code[i] < 'A' || code[i] > 'Z' {
			return "", fmt.Errorf("%w: %q", ErrInvalidCode, code)
		}
	}

	return code, nil
}

// Pairing obtains a token over the device's HTTP pairing endpoint: RequestCode makes the device
// show a code on its display, SubmitCode exchanges the code for a token.
type Pairing struct {
	// BaseURL is the address of the device's web page, e.g. http://192.168.1.50/.
	BaseURL string
	// HTTPClient defaults to http.DefaultClient.
	HTTPClient *http.Client
}

// RequestCode makes the device generate a pairing code and show it on its display.
func (p *Pairing) RequestCode(ctx context.Context) error {
	status, _, err := p.post(ctx, "")
	if err != nil {
		return err
	}
	if status != http.StatusAccepted && status != http.StatusOK {
		return fmt.Errorf("request pairing code: unexpected status %d", status)
	}

	return nil
}

// SubmitCode sends the code read from the display and returns the token issued for it.
func (p *Pairing) SubmitCode(ctx context.Context, code string) (string, error) {
	code, err := NormalizeCode(code)
	if err != nil {
		return "", err
	}

	status, body, err := p.post(ctx, code)
	if err != nil {
		return "", err
	}
	switch status {
	case http.StatusOK:
	case http.StatusConflict:
		return "", ErrCodeMismatch
	default:
		return "", fmt.Errorf("submit pairing code: unexpected status %d", status)
	}

	tok := params.Parse(body, params.LineSeparator)["token"]
	if tok == "" {
		return "", ErrNoToken
	}

	return tok, nil
}

// CodePrompt asks the user for the code shown on the device display.
type CodePrompt func(ctx context.Context) (string, error)

// TokenHook returns a hook for exchange.WithOnTokenRequired pairing interactively: it makes the
// device show a code, asks prompt for it and submits it.
func (p *Pairing) TokenHook(prompt CodePrompt) exchange.TokenRequiredHook {
	return func(ctx context.Context) (string, error) {
		if err := p.RequestCode(ctx); err != nil {
			return "", err
		}
		code, err := prompt(ctx)
		if err != nil {
			return "", err
		}

		return p.SubmitCode(ctx, code)
	}
}

func (p *Pairing) post(ctx context.Context, body string) (int, string, error) {
	endpoint, err := p.endpoint()
	if err != nil {
		return 0, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(body))
	if err != nil {
		return 0, "", err
	}
	req.Header.Set("Content-Type", "text/plain")

	client := p.HTTPClient
	if client == nil {
		client = http.DefaultClient
	}

	resp, err := client.Do(req)
	if err != nil {
		return 0, "", err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 4096))
	if err != nil {
		return 0, "", err
	}

	return resp.StatusCode, string(data), nil
}

func (p *Pairing) endpoint() (string, error) {
	u, err := url.Parse(p.BaseURL)
	if err != nil {
		return "", err
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return "", fmt.Errorf("unsupported pairing scheme %q", u.Scheme)
	}
	if u.Host == "" {
		return "", fmt.Errorf("missing host in %q", p.BaseURL)
	}

	path := u.Path
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		path = path[:i+1]
	} else {
		path = "/"
	}
	u.Path = path + CodePath
	u.RawQuery = ""
	u.Fragment = ""

	return u.String(), nil
}
