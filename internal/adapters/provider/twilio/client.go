package twilio

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"golang-sms-gateway/internal/domain"
	"golang-sms-gateway/internal/ports"
)

const (
	DefaultAPIBaseURL     = "https://api.twilio.com"
	DefaultLookupsBaseURL = "https://lookups.twilio.com"

	apiVersion = "/2010-04-01"
	pageSize   = "1000"

	dateSentLayout = time.RFC1123Z
	dayLayout      = "2006-01-02"
)

// Options configures endpoints and the per-call timeout.
type Options struct {
	APIBaseURL     string
	LookupsBaseURL string
	Timeout        time.Duration
	HTTPClient     *http.Client
}

// Client implements ports.Provider against the Twilio REST API.
type Client struct {
	creds      ports.Credentials
	apiBase    string
	lookupBase string
	timeout    time.Duration
	httpClient *http.Client
}

// New creates a Client bound to one account.
func New(creds ports.Credentials, opts Options) *Client {
	if opts.APIBaseURL == "" {
		opts.APIBaseURL = DefaultAPIBaseURL
	}
	if opts.LookupsBaseURL == "" {
		opts.LookupsBaseURL = DefaultLookupsBaseURL
	}
	if opts.Timeout == 0 {
		opts.Timeout = 30 * time.Second
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Timeout}
	}
	return &Client{
		creds:      creds,
		apiBase:    strings.TrimRight(opts.APIBaseURL, "/"),
		lookupBase: strings.TrimRight(opts.LookupsBaseURL, "/"),
		timeout:    opts.Timeout,
		httpClient: opts.HTTPClient,
	}
}

// Factory implements ports.ProviderFactory.
type Factory struct {
	Options Options
}

// ForCredentials returns a Client for creds.
func (f Factory) ForCredentials(creds ports.Credentials) ports.Provider {
	return New(creds, f.Options)
}

type messageResource struct {
	SID             string            `json:"sid"`
	To              string            `json:"to"`
	From            string            `json:"from"`
	Body            string            `json:"body"`
	Status          string            `json:"status"`
	Direction       string            `json:"direction"`
	ErrorCode       *int              `json:"error_code"`
	ErrorMessage    *string           `json:"error_message"`
	DateSent        *string           `json:"date_sent"`
	NumMedia        string            `json:"num_media"`
	SubresourceURIs map[string]string `json:"subresource_uris"`
}

type messagePage struct {
	Messages    []messageResource `json:"messages"`
	NextPageURI *string           `json:"next_page_uri"`
}

type mediaPage struct {
	MediaList []struct {
		SID         string `json:"sid"`
		ContentType string `json:"content_type"`
		URI         string `json:"uri"`
	} `json:"media_list"`
}

type lookupResource struct {
	PhoneNumber          string `json:"phone_number"`
	Valid                bool   `json:"valid"`
	LineTypeIntelligence *struct {
		Type        string `json:"type"`
		CarrierName string `json:"carrier_name"`
	} `json:"line_type_intelligence"`
}

type errorResource struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// Send posts a new message to the account's Messages resource.
func (c *Client) Send(ctx context.Context, req ports.SendRequest) (string, error) {
	form := url.Values{}
	form.Set("To", req.To)
	form.Set("From", req.From)
	if req.Body != "" {
		form.Set("Body", req.Body)
	}
	for _, u := range req.MediaURLs {
		form.Add("MediaUrl", u)
	}

	body, err := c.do(ctx, "send", http.MethodPost, c.accountURL("/Messages.json"), form)
	if err != nil {
		return "", err
	}

	var msg messageResource
	if err := json.Unmarshal(body, &msg); err != nil {
		return "", &domain.ProviderError{Op: "send", Err: fmt.Errorf("decode response: %w", err)}
	}
	return msg.SID, nil
}

// FetchMessage returns the raw message resource for sid.
func (c *Client) FetchMessage(ctx context.Context, sid string) (json.RawMessage, error) {
	body, err := c.do(ctx, "fetch message", http.MethodGet, c.accountURL("/Messages/"+url.PathEscape(sid)+".json"), nil)
	if err != nil {
		return nil, err
	}
	return json.RawMessage(body), nil
}

// ListMessages walks every page matching filter and loads media for
// messages that carry any.
func (c *Client) ListMessages(ctx context.Context, filter ports.MessageFilter) ([]ports.ProviderMessage, error) {
	q := url.Values{}
	if filter.To != "" {
		q.Set("To", filter.To)
	}
	if filter.From != "" {
		q.Set("From", filter.From)
	}
	if !filter.SentOn.IsZero() {
		q.Set("DateSent", filter.SentOn.Format(dayLayout))
	}
	if !filter.SentAfter.IsZero() {
		q.Set("DateSent>", filter.SentAfter.UTC().Format(dayLayout))
	}
	q.Set("PageSize", pageSize)

	next := c.accountURL("/Messages.json") + "?" + q.Encode()

	var out []ports.ProviderMessage
	for next != "" {
		body, err := c.do(ctx, "list messages", http.MethodGet, next, nil)
		if err != nil {
			return nil, err
		}

		var page messagePage
		if err := json.Unmarshal(body, &page); err != nil {
			return nil, &domain.ProviderError{Op: "list messages", Err: fmt.Errorf("decode page: %w", err)}
		}

		for _, res := range page.Messages {
			msg, err := c.toProviderMessage(ctx, res)
			if err != nil {
				return nil, err
			}
			if !filter.SentAfter.IsZero() && !msg.DateSent.After(filter.SentAfter) {
				continue
			}
			out = append(out, msg)
		}

		next = ""
		if page.NextPageURI != nil && *page.NextPageURI != "" {
			next = c.apiBase + *page.NextPageURI
		}
	}
	return out, nil
}

func (c *Client) toProviderMessage(ctx context.Context, res messageResource) (ports.ProviderMessage, error) {
	msg := ports.ProviderMessage{
		SID:       res.SID,
		To:        res.To,
		From:      res.From,
		Body:      res.Body,
		Status:    res.Status,
		Direction: res.Direction,
		ErrorCode: res.ErrorCode,
	}
	if res.ErrorMessage != nil {
		msg.ErrorMessage = *res.ErrorMessage
	}
	if res.DateSent != nil && *res.DateSent != "" {
		if ts, err := time.Parse(dateSentLayout, *res.DateSent); err == nil {
			msg.DateSent = ts
		}
	}

	mediaURI := res.SubresourceURIs["media"]
	if res.NumMedia == "" || res.NumMedia == "0" || mediaURI == "" {
		return msg, nil
	}

	body, err := c.do(ctx, "list media", http.MethodGet, c.apiBase+mediaURI, nil)
	if err != nil {
		return ports.ProviderMessage{}, err
	}
	var page mediaPage
	if err := json.Unmarshal(body, &page); err != nil {
		return ports.ProviderMessage{}, &domain.ProviderError{Op: "list media", Err: fmt.Errorf("decode media: %w", err)}
	}
	for _, m := range page.MediaList {
		msg.Media = append(msg.Media, ports.ProviderMedia{SID: m.SID, ContentType: m.ContentType, URI: m.URI})
	}
	return msg, nil
}

// LookupNumber fetches line type intelligence for an E.164 number.
func (c *Client) LookupNumber(ctx context.Context, e164 string) (*ports.LineTypeInfo, error) {
	u := c.lookupBase + "/v2/PhoneNumbers/" + url.PathEscape(e164) + "?Fields=line_type_intelligence"
	body, err := c.do(ctx, "lookup", http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}

	var res lookupResource
	if err := json.Unmarshal(body, &res); err != nil {
		return nil, &domain.ProviderError{Op: "lookup", Err: fmt.Errorf("decode lookup: %w", err)}
	}
	if res.LineTypeIntelligence == nil {
		return nil, nil
	}

	info := &ports.LineTypeInfo{
		PhoneNumber: res.PhoneNumber,
		Type:        res.LineTypeIntelligence.Type,
		CarrierName: res.LineTypeIntelligence.CarrierName,
		Valid:       res.Valid,
	}
	if info.Type == "" {
		info.Type = "Unknown"
	}
	if info.CarrierName == "" {
		info.CarrierName = "Unknown"
	}
	return info, nil
}

// FetchBalance reads the balance of accountID using the client's credentials.
func (c *Client) FetchBalance(ctx context.Context, accountID string) (ports.Balance, error) {
	u := c.apiBase + apiVersion + "/Accounts/" + url.PathEscape(accountID) + "/Balance.json"
	body, err := c.do(ctx, "fetch balance", http.MethodGet, u, nil)
	if err != nil {
		return ports.Balance{}, err
	}

	var b ports.Balance
	if err := json.Unmarshal(body, &b); err != nil {
		return ports.Balance{}, &domain.ProviderError{Op: "fetch balance", Err: fmt.Errorf("decode balance: %w", err)}
	}
	if b.Amount == "" {
		return ports.Balance{}, &domain.ProviderError{Op: "fetch balance", Message: "response carried no balance"}
	}
	return b, nil
}

func (c *Client) accountURL(path string) string {
	return c.apiBase + apiVersion + "/Accounts/" + url.PathEscape(c.creds.ClientID) + path
}

func (c *Client) do(ctx context.Context, op, method, target string, form url.Values) ([]byte, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	var reqBody io.Reader
	if form != nil {
		reqBody = strings.NewReader(form.Encode())
	}

	req, err := http.NewRequestWithContext(ctx, method, target, reqBody)
	if err != nil {
		return nil, &domain.ProviderError{Op: op, Err: fmt.Errorf("new request: %w", err)}
	}
	req.SetBasicAuth(c.creds.ClientID, c.creds.AuthToken)
	req.Header.Set("Accept", "application/json")
	if form != nil {
		req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, &domain.ProviderError{Op: op, Err: fmt.Errorf("do request: %w", err)}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &domain.ProviderError{Op: op, Err: fmt.Errorf("read response: %w", err)}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		pe := &domain.ProviderError{Op: op, StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var er errorResource
		if json.Unmarshal(body, &er) == nil && er.Message != "" {
			pe.Code = er.Code
			pe.Message = er.Message
		}
		return nil, pe
	}
	return body, nil
}
