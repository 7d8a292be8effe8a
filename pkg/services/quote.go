package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"walrusweb/pkg/auth"
	"walrusweb/pkg/metrics"
	"walrusweb/pkg/models"
	"walrusweb/pkg/rates"
	"walrusweb/pkg/store"
	"walrusweb/pkg/utils"
)

// PitchPathPrefix is the public path under which pitches are shared
const PitchPathPrefix = "/pitch/"

// ContactRepository stores contact submissions
type ContactRepository interface {
	Append(ctx context.Context, rec models.ContactSubmission) error
	List(ctx context.Context) ([]models.ContactSubmission, error)
}

// PitchRepository stores pitches
type PitchRepository interface {
	Append(ctx context.Context, rec models.PitchRecord) error
	List(ctx context.Context) ([]models.PitchRecord, error)
	FindByID(ctx context.Context, id string) (models.PitchRecord, error)
}

// Authorizer checks an operator secret
type Authorizer interface {
	Authorize(provided string) error
}

// LinkShortener turns a full pitch URL into a short link
type LinkShortener interface {
	CreateShortLink(ctx context.Context, originalURL string) (string, error)
}

// QuoteService defines the operations behind the contact form, the pitch
// page and the operator console
type QuoteService interface {
	Authorize(operation string, secret string) error
	SubmitContact(ctx context.Context, req models.ContactRequest) (string, error)
	CreatePitch(ctx context.Context, secret string, req models.PitchRequest) (models.PitchLink, error)
	GetPitch(ctx context.Context, id string) (models.PitchRecord, error)
	ListPitches(ctx context.Context, secret string) ([]models.PitchRecord, error)
	ListContacts(ctx context.Context, secret string) ([]models.ContactSubmission, error)
	QuotePreview(ctx context.Context, secret string, req models.QuoteRequest) (models.Quote, error)
}

type quoteServiceImpl struct {
	contacts      ContactRepository
	pitches       PitchRepository
	guard         Authorizer
	validate      *validator.Validate
	logger        *slog.Logger
	metrics       *metrics.Metrics
	shortener     LinkShortener
	publicBaseURL string
	now           func() time.Time
	newID         func() string
}

type QuoteServiceOptionFunc func(*quoteServiceImpl)

// WithLogger specifies the logger object to use for logging messages
func WithLogger(logger *slog.Logger) QuoteServiceOptionFunc {
	return func(s *quoteServiceImpl) {
		s.logger = logger
	}
}

// WithMetrics specifies the metrics to update
func WithMetrics(m *metrics.Metrics) QuoteServiceOptionFunc {
	return func(s *quoteServiceImpl) {
		s.metrics = m
	}
}

// WithShortener shortens the URL of every new pitch. publicBaseURL is the
// scheme and host the pitch page is served from.
func WithShortener(shortener LinkShortener, publicBaseURL string) QuoteServiceOptionFunc {
	return func(s *quoteServiceImpl) {
		s.shortener = shortener
		s.publicBaseURL = strings.TrimRight(publicBaseURL, "/")
	}
}

// WithClock specifies the time source for record timestamps
func WithClock(now func() time.Time) QuoteServiceOptionFunc {
	return func(s *quoteServiceImpl) {
		s.now = now
	}
}

// WithIDGenerator specifies how record identifiers are generated
func WithIDGenerator(newID func() string) QuoteServiceOptionFunc {
	return func(s *quoteServiceImpl) {
		s.newID = newID
	}
}

// NewQuoteService creates a new quote service
func NewQuoteService(
	contacts ContactRepository,
	pitches PitchRepository,
	guard Authorizer,
	opts ...QuoteServiceOptionFunc,
) QuoteService {
	s := &quoteServiceImpl{
		contacts: contacts,
		pitches:  pitches,
		guard:    guard,
		validate: newValidator(),
		now:      time.Now,
		newID:    uuid.NewString,
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = slog.New(slog.NewJSONHandler(io.Discard, nil))
	}
	return s
}

// SubmitContact validates and stores a contact request from the public form
func (s *quoteServiceImpl) SubmitContact(ctx context.Context, req models.ContactRequest) (string, error) {
	req = trimContactRequest(req)
	if err := validateStruct(s.validate, req); err != nil {
		s.metrics.ValidationFailed("submit_contact")
		return "", err
	}

	submission := models.ContactSubmission{
		ID:               s.newID(),
		BusinessName:     req.BusinessName,
		ContactName:      req.ContactName,
		Email:            req.Email,
		Phone:            req.Phone,
		Industry:         req.Industry,
		Volume:           req.Volume,
		CurrentProcessor: req.CurrentProcessor,
		Message:          req.Message,
		CreatedAt:        s.now().UTC(),
	}
	if err := s.contacts.Append(ctx, submission); err != nil {
		return "", fmt.Errorf("error storing contact submission: %w", err)
	}
	s.metrics.ContactSubmitted()

	// Contact details stay out of the logs
	s.logger.Info(
		fmt.Sprintf("stored contact submission %s", submission.ID),
		"component", "quote",
		"email_hash", utils.HashString(strings.ToLower(submission.Email)),
		"industry", submission.Industry,
	)
	return submission.ID, nil
}

// CreatePitch computes a quote for a merchant and stores it as a shareable pitch
func (s *quoteServiceImpl) CreatePitch(
	ctx context.Context,
	secret string,
	req models.PitchRequest,
) (models.PitchLink, error) {
	if err := s.Authorize("create_pitch", secret); err != nil {
		return models.PitchLink{}, err
	}
	req.MerchantName = strings.TrimSpace(req.MerchantName)
	req.Industry = strings.TrimSpace(req.Industry)
	req.CurrentProcessor = strings.TrimSpace(req.CurrentProcessor)
	if err := validateStruct(s.validate, req); err != nil {
		s.metrics.ValidationFailed("create_pitch")
		return models.PitchLink{}, err
	}

	quote := ComputeQuote(req.Industry, req.MonthlyVolume, req.CurrentRate)
	pitch := models.PitchRecord{
		ID:                s.newID(),
		MerchantName:      req.MerchantName,
		Industry:          req.Industry,
		MonthlyVolume:     req.MonthlyVolume,
		CurrentProcessor:  req.CurrentProcessor,
		CurrentRate:       req.CurrentRate,
		WalrusRatePercent: quote.WalrusRatePercent,
		WalrusRateFixed:   quote.WalrusRateFixed,
		MonthlySavings:    quote.MonthlySavings,
		AnnualSavings:     quote.AnnualSavings,
		CreatedAt:         s.now().UTC(),
	}
	if err := s.pitches.Append(ctx, pitch); err != nil {
		return models.PitchLink{}, fmt.Errorf("error storing pitch: %w", err)
	}
	s.metrics.PitchCreated(pitch.AnnualSavings)
	s.logger.Info(
		fmt.Sprintf("created pitch %s for %s", pitch.ID, pitch.MerchantName),
		"component", "quote",
		"industry", pitch.Industry,
		"rate_percent", pitch.WalrusRatePercent,
		"annual_savings", pitch.AnnualSavings,
	)

	link := models.PitchLink{
		ID:  pitch.ID,
		URL: PitchPathPrefix + pitch.ID,
	}
	if s.shortener != nil && s.publicBaseURL != "" {
		// The pitch is already stored, so a shortener failure only costs the short link
		shortURL, err := s.shortener.CreateShortLink(ctx, s.publicBaseURL+link.URL)
		if err != nil {
			s.logger.Warn(
				fmt.Sprintf("error creating short link for pitch %s: %s", pitch.ID, err),
				"component", "quote",
			)
		} else {
			link.ShortURL = shortURL
		}
	}
	return link, nil
}

// GetPitch returns the pitch whose id matches exactly. Knowing the id is
// enough to read it.
func (s *quoteServiceImpl) GetPitch(ctx context.Context, id string) (models.PitchRecord, error) {
	pitch, err := s.pitches.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return models.PitchRecord{}, ErrPitchNotFound
		}
		return models.PitchRecord{}, fmt.Errorf("error loading pitch: %w", err)
	}
	return pitch, nil
}

// ListPitches returns every pitch, newest first
func (s *quoteServiceImpl) ListPitches(ctx context.Context, secret string) ([]models.PitchRecord, error) {
	if err := s.Authorize("list_pitches", secret); err != nil {
		return nil, err
	}
	pitches, err := s.pitches.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing pitches: %w", err)
	}
	return pitches, nil
}

// ListContacts returns every contact submission, newest first
func (s *quoteServiceImpl) ListContacts(ctx context.Context, secret string) ([]models.ContactSubmission, error) {
	if err := s.Authorize("list_contacts", secret); err != nil {
		return nil, err
	}
	contacts, err := s.contacts.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("error listing contact submissions: %w", err)
	}
	return contacts, nil
}

// QuotePreview computes a quote without storing anything
func (s *quoteServiceImpl) QuotePreview(
	_ context.Context,
	secret string,
	req models.QuoteRequest,
) (models.Quote, error) {
	if err := s.Authorize("quote_preview", secret); err != nil {
		return models.Quote{}, err
	}
	req.Industry = strings.TrimSpace(req.Industry)
	if err := validateStruct(s.validate, req); err != nil {
		s.metrics.ValidationFailed("quote_preview")
		return models.Quote{}, err
	}
	return ComputeQuote(req.Industry, req.MonthlyVolume, req.CurrentRate), nil
}

// Authorize checks an operator secret. Operator operations call it
// themselves; callers use it to reject a request before reading its body.
func (s *quoteServiceImpl) Authorize(operation string, secret string) error {
	err := s.guard.Authorize(secret)
	if err == nil {
		return nil
	}
	reason := "invalid_secret"
	if errors.Is(err, auth.ErrNotConfigured) {
		reason = "not_configured"
	}
	s.metrics.AuthFailed(reason)
	s.logger.Warn(
		fmt.Sprintf("denied operator request %s: %s", operation, err),
		"component", "quote",
	)
	return err
}

// ComputeQuote is the quote for an industry, volume and competitor rate
func ComputeQuote(industry string, monthlyVolume float64, currentRate float64) models.Quote {
	rate := rates.Compute(industry, monthlyVolume)
	monthly, annual := rates.Savings(monthlyVolume, currentRate, rate.Percent)
	return models.Quote{
		Industry:          industry,
		MonthlyVolume:     monthlyVolume,
		CurrentRate:       currentRate,
		WalrusRatePercent: rate.Percent,
		WalrusRateFixed:   rate.Fixed,
		MonthlySavings:    monthly,
		AnnualSavings:     annual,
	}
}

func trimContactRequest(req models.ContactRequest) models.ContactRequest {
	req.BusinessName = strings.TrimSpace(req.BusinessName)
	req.ContactName = strings.TrimSpace(req.ContactName)
	req.Email = strings.TrimSpace(req.Email)
	req.Phone = strings.TrimSpace(req.Phone)
	req.Industry = strings.TrimSpace(req.Industry)
	req.Volume = strings.TrimSpace(req.Volume)
	req.CurrentProcessor = strings.TrimSpace(req.CurrentProcessor)
	req.Message = strings.TrimSpace(req.Message)
	return req
}
