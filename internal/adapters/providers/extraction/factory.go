package extraction

import (
	"github.com/rs/zerolog/log"

	"github.com/zatekoja/underwritingcasedesk/backend/internal/domain/providers"
	"github.com/zatekoja/underwritingcasedesk/backend/internal/infrastructure/clients/openai"
	"github.com/zatekoja/underwritingcasedesk/backend/pkg/config"
)

// NewDocumentExtractor returns the OpenAI extractor when a key is configured
// and the mock extractor otherwise.
func NewDocumentExtractor(cfg *config.OpenAIConfig) providers.DocumentExtractor {
	if cfg == nil || cfg.APIKey == "" {
		log.Warn().Msg("OPENAI_API_KEY not configured, using mock extraction data")
		return NewMockExtractor(0)
	}

	client, err := openai.NewClient(cfg)
	if err != nil {
		log.Warn().Err(err).Msg("OpenAI client unavailable, using mock extraction data")
		return NewMockExtractor(0)
	}
	return client
}
