package rest

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/acme/inbound-call-desk/internal/config"
	apperrors "github.com/acme/inbound-call-desk/pkg/errors"
)

// Provider drives the telephony engine over its REST surface using
// basic-auth form posts.
type Provider struct {
	baseURL string
	account string
	token   string
	client  *http.Client
}

// NewProvider constructs a REST provider from voicemail/provider config.
func NewProvider(cfg config.VoicemailConfig) *Provider {
	timeout := cfg.RequestTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Provider{
		baseURL: strings.TrimRight(cfg.ProviderBaseURL, "/"),
		account: cfg.ProviderAccount,
		token:   cfg.ProviderToken,
		client:  &http.Client{Timeout: timeout},
	}
}

// RedirectCall updates the live call leg to fetch the given script URL.
func (p *Provider) RedirectCall(ctx context.Context, callSID, scriptURL string) error {
	endpoint := fmt.Sprintf("%s/Accounts/%s/Calls/%s.json", p.baseURL, p.account, callSID)
	form := url.Values{}
	form.Set("Url", scriptURL)
	form.Set("Method", "POST")

	if err := p.post(ctx, endpoint, form); err != nil {
		return fmt.Errorf("telephony: redirect call %s: %w", callSID, err)
	}
	return nil
}

// CancelTask asks the engine to cancel a task with the given reason.
func (p *Provider) CancelTask(ctx context.Context, workspaceSID, taskSID, reason string) error {
	endpoint := fmt.Sprintf("%s/Workspaces/%s/Tasks/%s", p.baseURL, workspaceSID, taskSID)
	form := url.Values{}
	form.Set("AssignmentStatus", "canceled")
	form.Set("Reason", reason)

	if err := p.post(ctx, endpoint, form); err != nil {
		return fmt.Errorf("telephony: cancel task %s: %w", taskSID, err)
	}
	return nil
}

func (p *Provider) post(ctx context.Context, endpoint string, form url.Values) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.SetBasicAuth(p.account, p.token)

	resp, err := p.client.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", apperrors.ErrUnavailable, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode >= 200 && resp.StatusCode < 300:
		return nil
	case resp.StatusCode == http.StatusNotFound:
		return apperrors.ErrNotFound
	case resp.StatusCode == http.StatusConflict:
		return apperrors.ErrConflict
	case resp.StatusCode == http.StatusBadRequest:
		// The engine reports "task already in terminal state" as a 400 with
		// an explanatory body.
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		if strings.Contains(strings.ToLower(string(body)), "terminal") ||
			strings.Contains(strings.ToLower(string(body)), "already") {
			return apperrors.ErrConflict
		}
		return fmt.Errorf("provider rejected request: %s", string(body))
	default:
		return fmt.Errorf("%w: provider status %d", apperrors.ErrUnavailable, resp.StatusCode)
	}
}
