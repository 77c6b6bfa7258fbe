// Package connector orchestrates the two user-facing flows: registering a
// profile (store + resume extraction) and connecting a request to the best
// candidate (store + match service + sanitizer).
package connector

import (
	"context"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"

	"superconnector/internal/ai"
	"superconnector/internal/metrics"
	"superconnector/internal/sanitize"
	"superconnector/internal/store"
)

// localURLPrefix marks resume URLs that point at a path on this host. The
// extractor client resolves the same scheme.
const localURLPrefix = "local://"

// ConnectionRequest is the payload of a connect call. Category narrows the
// candidate pool when set; AdditionalInfo is accepted but not used by the
// matching flow.
type ConnectionRequest struct {
	UserID         string `json:"user_id"`
	LookingFor     string `json:"looking_for" binding:"required"`
	AdditionalInfo string `json:"additional_info"`
	Category       string `json:"category"`
}

// MatchResult pairs the winning user with the sanitized explanation.
type MatchResult struct {
	User        *store.User `json:"user"`
	Explanation string      `json:"explanation"`
}

// ResumeUpload carries an uploaded resume file through registration.
type ResumeUpload struct {
	Filename string
	Data     io.Reader
}

// Extractor turns a stored resume location into plain text and a category
// label.
type Extractor interface {
	Extract(ctx context.Context, fileURL string) (text, category string, err error)
}

type Service struct {
	store     store.Store
	extractor Extractor
	matcher   ai.Matcher
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

func New(st store.Store, extractor Extractor, matcher ai.Matcher, m *metrics.Metrics, logger *zap.Logger) *Service {
	return &Service{
		store:     st,
		extractor: extractor,
		matcher:   matcher,
		metrics:   m,
		logger:    logger,
	}
}

// Register creates a user profile. When a resume accompanies the request it
// is staged to a scratch file, sent through the extractor and attached to
// the profile; extraction failure degrades to an empty resume text rather
// than failing the registration.
func (s *Service) Register(ctx context.Context, name, phone string, upload *ResumeUpload) (*store.User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, fmt.Errorf("%w: name is required", ErrInvalidRequest)
	}

	normalized, err := store.NormalizePhone(phone)
	if err != nil {
		return nil, err
	}

	user, err := s.store.CreateUser(ctx, name, normalized)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	if upload == nil {
		s.logger.Info("user registered", zap.String("user_id", user.ID))
		s.metrics.RecordRegistration()
		return user, nil
	}

	fileURL, cleanup, err := s.stageUpload(upload)
	if err != nil {
		return nil, err
	}
	defer cleanup()

	text, category, err := s.extractor.Extract(ctx, fileURL)
	if err != nil {
		s.logger.Warn("resume extraction failed, continuing without text",
			zap.String("user_id", user.ID),
			zap.Error(err),
		)
		text, category = "", ""
	}

	user, err = s.store.UpdateResume(ctx, user.ID, fileURL, text, category)
	if err != nil {
		return nil, fmt.Errorf("update resume: %w", err)
	}

	s.logger.Info("user registered",
		zap.String("user_id", user.ID),
		zap.String("category", category),
		zap.Bool("has_resume", true),
	)
	s.metrics.RecordRegistration()

	return user, nil
}

// GetUser returns a stored profile by id.
func (s *Service) GetUser(ctx context.Context, id string) (*store.User, error) {
	return s.store.GetUser(ctx, id)
}

// Connect finds the best candidate for a request and returns it with a
// sanitized explanation. A failing match service degrades to the first
// candidate; an empty pool or an explicit no-match verdict surface as
// ErrNoUsers and NoMatchError respectively.
func (s *Service) Connect(ctx context.Context, req *ConnectionRequest) (*MatchResult, error) {
	lookingFor := strings.TrimSpace(req.LookingFor)
	if lookingFor == "" {
		return nil, fmt.Errorf("%w: looking_for is required", ErrInvalidRequest)
	}

	candidates, err := s.listCandidates(ctx, req.Category)
	if err != nil {
		s.metrics.RecordConnect(metrics.OutcomeError)
		return nil, fmt.Errorf("list candidates: %w", err)
	}

	if candidates.Len() == 0 {
		s.metrics.RecordConnect(metrics.OutcomeNoUsers)
		return nil, ErrNoUsers
	}

	match, err := s.matcher.Match(ctx, lookingFor, candidates)
	if err != nil {
		s.metrics.RecordMatchError()
		return s.fallbackMatch(candidates, err)
	}

	if match.User == nil {
		s.logger.Info("no suitable candidate",
			zap.String("looking_for", lookingFor),
			zap.Int("candidates", candidates.Len()),
		)
		s.metrics.RecordConnect(metrics.OutcomeNoMatch)
		return nil, &NoMatchError{LookingFor: lookingFor}
	}

	explanation := sanitize.Explanation(match.Explanation, candidates, match.User)

	s.logger.Info("connection matched",
		zap.String("looking_for", lookingFor),
		zap.String("winner_id", match.User.ID),
	)
	s.metrics.RecordConnect(metrics.OutcomeMatched)

	return &MatchResult{User: match.User, Explanation: explanation}, nil
}

func (s *Service) listCandidates(ctx context.Context, category string) (*store.Users, error) {
	if c := strings.TrimSpace(category); c != "" {
		return s.store.ListByCategory(ctx, c)
	}
	return s.store.ListAll(ctx)
}

// fallbackMatch keeps the connect flow alive after a match service failure:
// the first candidate wins with a canned explanation.
func (s *Service) fallbackMatch(candidates *store.Users, cause error) (*MatchResult, error) {
	winner := candidates.First()
	if winner == nil {
		s.metrics.RecordConnect(metrics.OutcomeError)
		return nil, ErrMatchUnavailable
	}

	s.logger.Warn("match service failed, defaulting to first candidate",
		zap.String("winner_id", winner.ID),
		zap.Error(cause),
	)
	s.metrics.RecordConnect(metrics.OutcomeFallback)

	explanation := fmt.Sprintf("Error finding best match, defaulting to %s. Please try again with more specific criteria.", winner.Name)

	return &MatchResult{User: winner, Explanation: explanation}, nil
}

// stageUpload writes the uploaded resume to a scratch file and returns its
// local URL plus a cleanup func for the caller to defer.
func (s *Service) stageUpload(upload *ResumeUpload) (string, func(), error) {
	tmp, err := os.CreateTemp("", "resume_upload_*"+filepath.Ext(upload.Filename))
	if err != nil {
		return "", nil, fmt.Errorf("staging resume: %w", err)
	}

	cleanup := func() {
		os.Remove(tmp.Name())
	}

	if _, err := io.Copy(tmp, upload.Data); err != nil {
		tmp.Close()
		cleanup()
		return "", nil, fmt.Errorf("staging resume: %w", err)
	}
	if err := tmp.Close(); err != nil {
		cleanup()
		return "", nil, fmt.Errorf("staging resume: %w", err)
	}

	return localURLPrefix + tmp.Name(), cleanup, nil
}
