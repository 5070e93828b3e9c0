package gmail

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"log"
	"time"

	gomail "github.com/emersion/go-message/mail"
	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	mailboxdomain "ticketdesk-backend/internal/mailbox/domain"
)

const (
	user = "me"

	// Gmail API maximum page size.
	maxPageSize = 500
)

// metadataHeaders are the headers requested for sync-time thread fetches.
var metadataHeaders = []string{"From", "Subject", "Date", "Message-ID", "In-Reply-To", "References"}

// Service is the Gmail implementation of mailboxdomain.MailProvider.
type Service struct {
	clientID     string
	clientSecret string
	cb           *gobreaker.CircuitBreaker
}

// NewService creates a Gmail mailbox gateway.
func NewService(clientID, clientSecret string) *Service {
	cbSettings := gobreaker.Settings{
		Name:     "gmail-api",
		Interval: 60 * time.Second,
		Timeout:  30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Printf("[GmailGateway] circuit breaker %s: %s -> %s", name, from.String(), to.String())
		},
	}

	return &Service{
		clientID:     clientID,
		clientSecret: clientSecret,
		cb:           gobreaker.NewCircuitBreaker(cbSettings),
	}
}

// OAuthConfig returns the oauth2 config used for the connect flow.
func (s *Service) OAuthConfig(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		RedirectURL:  redirectURI,
		Scopes: []string{
			gmail.GmailReadonlyScope,
			gmail.GmailModifyScope,
			gmail.GmailSendScope,
		},
		Endpoint: google.Endpoint,
	}
}

// notifyTokenSource wraps an oauth2.TokenSource and reports refreshed access
// tokens through the caller's persistence callback, so a refresh is never
// visible beyond this type.
type notifyTokenSource struct {
	src      oauth2.TokenSource
	current  *oauth2.Token
	callback mailboxdomain.TokenUpdateFunc
}

func (s *notifyTokenSource) Token() (*oauth2.Token, error) {
	t, err := s.src.Token()
	if err != nil {
		return nil, err
	}
	if s.callback != nil && s.current.AccessToken != t.AccessToken {
		s.current = t
		if err := s.callback(t); err != nil {
			log.Printf("[GmailGateway] failed to persist refreshed token: %v", err)
		}
	}
	return t, nil
}

func (s *Service) getService(ctx context.Context, creds mailboxdomain.Credentials) (*gmail.Service, error) {
	token := &oauth2.Token{
		AccessToken:  creds.AccessToken,
		RefreshToken: creds.RefreshToken,
		TokenType:    "Bearer",
	}

	// Only force refresh if we have a refresh token
	if creds.RefreshToken != "" {
		token.Expiry = time.Now()
	}

	config := &oauth2.Config{
		ClientID:     s.clientID,
		ClientSecret: s.clientSecret,
		Endpoint:     google.Endpoint,
	}

	wrappedSource := &notifyTokenSource{
		src:      config.TokenSource(ctx, token),
		current:  token,
		callback: creds.OnRefresh,
	}

	client := oauth2.NewClient(ctx, wrappedSource)

	srv, err := gmail.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("unable to create Gmail service: %w", err)
	}
	return srv, nil
}

// CurrentHistoryID returns the mailbox's current change-sequence marker.
func (s *Service) CurrentHistoryID(ctx context.Context, creds mailboxdomain.Credentials) (uint64, error) {
	srv, err := s.getService(ctx, creds)
	if err != nil {
		return 0, err
	}

	var profile *gmail.Profile
	err = s.execute("GetProfile", func() error {
		var apiErr error
		profile, apiErr = srv.Users.GetProfile(user).Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		return 0, s.wrapError(err, "unable to get profile")
	}
	return profile.HistoryId, nil
}

// ListThreadIDs pages through a thread search until max IDs are collected or
// the result set is exhausted.
func (s *Service) ListThreadIDs(ctx context.Context, creds mailboxdomain.Credentials, query string, inboxOnly bool, max int) (*mailboxdomain.ThreadPage, error) {
	srv, err := s.getService(ctx, creds)
	if err != nil {
		return nil, err
	}

	page := &mailboxdomain.ThreadPage{}
	pageToken := ""

	for {
		remaining := max - len(page.IDs)
		if remaining <= 0 {
			page.HitLimit = true
			return page, nil
		}
		pageSize := int64(remaining)
		if pageSize > maxPageSize {
			pageSize = maxPageSize
		}

		call := srv.Users.Threads.List(user).MaxResults(pageSize)
		if query != "" {
			call = call.Q(query)
		}
		if inboxOnly {
			call = call.LabelIds(mailboxdomain.LabelInbox)
		}
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		var resp *gmail.ListThreadsResponse
		err = s.execute("ListThreads", func() error {
			var apiErr error
			resp, apiErr = call.Context(ctx).Do()
			return apiErr
		})
		if err != nil {
			return nil, s.wrapError(err, "unable to list threads")
		}

		for _, t := range resp.Threads {
			if len(page.IDs) >= max {
				page.HitLimit = true
				return page, nil
			}
			page.IDs = append(page.IDs, t.Id)
		}

		if resp.NextPageToken == "" {
			return page, nil
		}
		pageToken = resp.NextPageToken
	}
}

// ListChangedThreadIDs tails the change log from startHistoryID, returning
// the deduplicated thread IDs touched by message or label events on the
// inbox. Returns ErrHistoryExpired when the marker is too old to resume from.
func (s *Service) ListChangedThreadIDs(ctx context.Context, creds mailboxdomain.Credentials, startHistoryID uint64) ([]string, error) {
	srv, err := s.getService(ctx, creds)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var threadIDs []string
	pageToken := ""

	for {
		call := srv.Users.History.List(user).
			StartHistoryId(startHistoryID).
			LabelId(mailboxdomain.LabelInbox).
			HistoryTypes("messageAdded", "labelAdded", "labelRemoved")
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}

		var resp *gmail.ListHistoryResponse
		err = s.execute("ListHistory", func() error {
			var apiErr error
			resp, apiErr = call.Context(ctx).Do()
			return apiErr
		})
		if err != nil {
			if apiErr, ok := asGoogleAPIError(err); ok && apiErr.Code == 404 {
				// Gmail reports an expired startHistoryId as 404.
				return nil, fmt.Errorf("%w: start history id %d", mailboxdomain.ErrHistoryExpired, startHistoryID)
			}
			return nil, s.wrapError(err, "unable to list history")
		}

		for _, h := range resp.History {
			for _, added := range h.MessagesAdded {
				collectThreadID(added.Message, seen, &threadIDs)
			}
			for _, la := range h.LabelsAdded {
				collectThreadID(la.Message, seen, &threadIDs)
			}
			for _, lr := range h.LabelsRemoved {
				collectThreadID(lr.Message, seen, &threadIDs)
			}
		}

		if resp.NextPageToken == "" {
			return threadIDs, nil
		}
		pageToken = resp.NextPageToken
	}
}

func collectThreadID(msg *gmail.Message, seen map[string]struct{}, out *[]string) {
	if msg == nil || msg.ThreadId == "" {
		return
	}
	if _, ok := seen[msg.ThreadId]; ok {
		return
	}
	seen[msg.ThreadId] = struct{}{}
	*out = append(*out, msg.ThreadId)
}

// GetThread fetches a thread in metadata form: headers, labels and snippets
// only, which is all sync needs.
func (s *Service) GetThread(ctx context.Context, creds mailboxdomain.Credentials, threadID string) (*mailboxdomain.Thread, error) {
	srv, err := s.getService(ctx, creds)
	if err != nil {
		return nil, err
	}

	var th *gmail.Thread
	err = s.execute("GetThread", func() error {
		var apiErr error
		th, apiErr = srv.Users.Threads.Get(user, threadID).
			Format("metadata").
			MetadataHeaders(metadataHeaders...).
			Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		if apiErr, ok := asGoogleAPIError(err); ok && apiErr.Code == 404 {
			return nil, fmt.Errorf("%w: %s", mailboxdomain.ErrThreadNotFound, threadID)
		}
		return nil, s.wrapError(err, "unable to get thread")
	}

	thread := &mailboxdomain.Thread{ID: th.Id}
	for _, m := range th.Messages {
		thread.Messages = append(thread.Messages, convertMessage(m))
	}
	return thread, nil
}

// GetThreadDetail fetches a thread in full form with decoded text bodies.
func (s *Service) GetThreadDetail(ctx context.Context, creds mailboxdomain.Credentials, threadID string) (*mailboxdomain.ThreadDetail, error) {
	srv, err := s.getService(ctx, creds)
	if err != nil {
		return nil, err
	}

	var th *gmail.Thread
	err = s.execute("GetThreadDetail", func() error {
		var apiErr error
		th, apiErr = srv.Users.Threads.Get(user, threadID).Format("full").Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		if apiErr, ok := asGoogleAPIError(err); ok && apiErr.Code == 404 {
			return nil, fmt.Errorf("%w: %s", mailboxdomain.ErrThreadNotFound, threadID)
		}
		return nil, s.wrapError(err, "unable to get thread detail")
	}

	detail := &mailboxdomain.ThreadDetail{
		ThreadID: threadID,
		WebURL:   threadWebURL(threadID),
	}
	for _, m := range th.Messages {
		headers := headersMap(m.Payload)
		body := extractBody(m.Payload)
		if len(body) > maxBodyChars {
			body = body[:maxBodyChars]
		}
		detail.Messages = append(detail.Messages, mailboxdomain.ThreadBody{
			ID:      m.Id,
			From:    headers["from"],
			To:      headers["to"],
			Date:    headers["date"],
			Subject: headers["subject"],
			Snippet: m.Snippet,
			Body:    body,
		})
	}
	return detail, nil
}

// SendMessage composes a plain-text message and sends it. A non-empty
// threadID threads it as a reply.
func (s *Service) SendMessage(ctx context.Context, creds mailboxdomain.Credentials, threadID, to, subject, body string) error {
	if to == "" {
		return fmt.Errorf("%w: missing recipient", mailboxdomain.ErrSendRejected)
	}

	srv, err := s.getService(ctx, creds)
	if err != nil {
		return err
	}

	raw, err := composeMessage(to, subject, body)
	if err != nil {
		return fmt.Errorf("unable to compose message: %w", err)
	}

	msg := &gmail.Message{
		Raw: base64.URLEncoding.EncodeToString(raw),
	}
	if threadID != "" {
		msg.ThreadId = threadID
	}

	err = s.execute("SendMessage", func() error {
		_, apiErr := srv.Users.Messages.Send(user, msg).Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		if apiErr, ok := asGoogleAPIError(err); ok && apiErr.Code >= 400 && apiErr.Code < 500 {
			return fmt.Errorf("%w: %v", mailboxdomain.ErrSendRejected, err)
		}
		return s.wrapError(err, "unable to send message")
	}
	return nil
}

// composeMessage builds an RFC 5322 plain-text message.
func composeMessage(to, subject, body string) ([]byte, error) {
	var buf bytes.Buffer

	var h gomail.Header
	h.SetDate(time.Now())
	h.SetSubject(subject)
	h.SetAddressList("To", []*gomail.Address{{Address: to}})

	w, err := gomail.CreateSingleInlineWriter(&buf, h)
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(w, body); err != nil {
		w.Close()
		return nil, err
	}
	if err := w.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// execute wraps an API call with circuit breaker protection. Client errors
// (4xx) must not trip the breaker; only server-side failures and rate limits
// count.
func (s *Service) execute(operation string, fn func() error) error {
	_, err := s.cb.Execute(func() (interface{}, error) {
		if err := fn(); err != nil {
			if apiErr, ok := err.(*googleapi.Error); ok {
				switch {
				case apiErr.Code == 429 || apiErr.Code >= 500:
					return nil, err
				default:
					return nil, &nonCircuitError{err: err}
				}
			}
			return nil, err
		}
		return nil, nil
	})

	if nce, ok := err.(*nonCircuitError); ok {
		return nce.err
	}
	if err != nil {
		log.Printf("[GmailGateway] %s failed (breaker %s): %v", operation, s.cb.State().String(), err)
	}
	return err
}

// nonCircuitError wraps errors that should not trip the circuit breaker.
type nonCircuitError struct {
	err error
}

func (e *nonCircuitError) Error() string {
	return e.err.Error()
}

func asGoogleAPIError(err error) (*googleapi.Error, bool) {
	apiErr, ok := err.(*googleapi.Error)
	return apiErr, ok
}

// wrapError translates provider failures into the domain error taxonomy.
func (s *Service) wrapError(err error, msg string) error {
	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return fmt.Errorf("%w: %s: %v", mailboxdomain.ErrTransient, msg, err)
	}
	if apiErr, ok := asGoogleAPIError(err); ok {
		switch {
		case apiErr.Code == 401 || apiErr.Code == 403:
			return fmt.Errorf("%w: %s: %v", mailboxdomain.ErrMailboxNotConnected, msg, err)
		case apiErr.Code == 429 || apiErr.Code >= 500:
			return fmt.Errorf("%w: %s: %v", mailboxdomain.ErrTransient, msg, err)
		}
		return fmt.Errorf("%s: %w", msg, err)
	}
	// Network-level failures (timeouts, DNS, resets) are retriable.
	return fmt.Errorf("%w: %s: %v", mailboxdomain.ErrTransient, msg, err)
}
