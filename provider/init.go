package provider

import (
	"fmt"

	"aiderdesk/config"
	"aiderdesk/model"
)

// ForProfile creates the provider an agent profile runs on.
//
// The provider entry named by the profile supplies the type, endpoint, key and
// default model; the profile may override the model and sets the token and
// temperature limits. Disabled providers are rejected so a profile cannot
// silently fall back to an unconfigured backend.
func ForProfile(cfg *config.Config, profile model.AgentProfile) (model.Provider, error) {
	providerCfg, ok := cfg.Provider(profile.Provider)
	if !ok {
		return nil, fmt.Errorf("profile %q uses unknown provider %q", profile.ID, profile.Provider)
	}
	if !providerCfg.Enabled {
		return nil, fmt.Errorf("provider %q is disabled", providerCfg.ID)
	}

	typ := providerCfg.Type
	if typ == "" {
		typ = providerCfg.ID
	}

	modelName := providerCfg.Model
	if profile.Model != "" {
		modelName = profile.Model
	}

	p, err := NewProvider(Config{
		Type:        MapProviderIDToType(typ),
		BaseURL:     providerCfg.BaseURL,
		APIKey:      providerCfg.APIKey,
		Model:       modelName,
		MaxTokens:   profile.MaxTokens,
		Temperature: profile.Temperature,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to initialize provider %s: %w", providerCfg.ID, err)
	}

	config.Logger().Debug("Initialized provider", "provider", providerCfg.ID, "type", typ, "model", p.GetModel(), "profile", profile.ID)
	return p, nil
}
