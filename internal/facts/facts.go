package facts

import (
	"context"
	"encoding/json"
	"io"
	"math/rand"
	"net/http"
	"sync"

	"github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gopkg.in/yaml.v2"

	"github.com/variantsgg/variants/internal/config"
	"github.com/variantsgg/variants/resources"
)

// Source fetches a random fact from the facts API, falling back to an
// embedded list when the API is unreachable.
type Source struct {
	apiURL string
	client *http.Client
	logger *log.Entry

	once     sync.Once
	fallback []string

	mu  sync.Mutex
	rng *rand.Rand
}

func New(cfg config.Facts, rng *rand.Rand) *Source {
	return &Source{
		apiURL: cfg.APIURL,
		client: &http.Client{Timeout: cfg.Timeout},
		logger: log.WithField("context", "facts"),
		rng:    rng,
	}
}

func (s *Source) Fetch(ctx context.Context) (string, error) {
	fact, err := s.fetchRemote(ctx)
	if err == nil {
		return fact, nil
	}
	s.logger.WithField("error", err.Error()).Warn("facts api unavailable, using fallback")
	return s.fetchFallback()
}

func (s *Source) fetchRemote(ctx context.Context) (string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.apiURL, nil)
	if err != nil {
		return "", errors.WithMessage(err, "create request")
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return "", errors.WithMessage(err, "get fact")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return "", errors.Errorf("unexpected status %d", resp.StatusCode)
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<16))
	if err != nil {
		return "", errors.WithMessage(err, "read body")
	}

	payload := struct {
		Text string `json:"text"`
	}{}
	if err := json.Unmarshal(body, &payload); err != nil {
		return "", errors.WithMessage(err, "parse body")
	}
	if payload.Text == "" {
		return "", errors.New("empty fact text")
	}
	return payload.Text, nil
}

func (s *Source) fetchFallback() (string, error) {
	var loadErr error
	s.once.Do(func() {
		raw, err := resources.FS.ReadFile("facts/fallback.yml")
		if err != nil {
			loadErr = errors.WithMessage(err, "read fallback facts")
			return
		}
		payload := struct {
			Facts []string `yaml:"facts"`
		}{}
		if err := yaml.Unmarshal(raw, &payload); err != nil {
			loadErr = errors.WithMessage(err, "parse fallback facts")
			return
		}
		s.fallback = payload.Facts
	})
	if loadErr != nil {
		return "", loadErr
	}
	if len(s.fallback) == 0 {
		return "", errors.New("no fallback facts")
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fallback[s.rng.Intn(len(s.fallback))], nil
}
