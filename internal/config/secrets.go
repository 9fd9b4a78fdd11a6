package config

// RedactedConfig returns a shallow copy of cfg with sensitive fields replaced
// by the redaction placeholder "***". Use this when logging or printing the
// active configuration so secrets are never accidentally exposed.
func RedactedConfig(cfg *Config) Config {
	out := *cfg // shallow copy of the top-level struct

	out.Feeds = make(map[string]FeedConfig, len(cfg.Feeds))
	for venue, f := range cfg.Feeds {
		redact(&f.APIKey)
		redact(&f.APISecret)
		redact(&f.APIPassphrase)
		out.Feeds[venue] = f
	}

	redact(&out.Gateway.Token)
	redact(&out.Store.CredentialKey)
	redact(&out.Redis.Password)
	redact(&out.S3.AccessKey)
	redact(&out.S3.SecretKey)
	redact(&out.Notify.TelegramToken)
	redact(&out.Notify.DiscordWebhookURL)

	// Copy slices so callers cannot mutate the original through the redacted
	// copy.
	if cfg.Notify.Events != nil {
		out.Notify.Events = make([]string, len(cfg.Notify.Events))
		copy(out.Notify.Events, cfg.Notify.Events)
	}
	if cfg.Gateway.CORSOrigins != nil {
		out.Gateway.CORSOrigins = make([]string, len(cfg.Gateway.CORSOrigins))
		copy(out.Gateway.CORSOrigins, cfg.Gateway.CORSOrigins)
	}
	if cfg.HFT.Assets != nil {
		out.HFT.Assets = make([]string, len(cfg.HFT.Assets))
		copy(out.HFT.Assets, cfg.HFT.Assets)
	}

	// Copy maps so mutations to the redacted copy do not affect the original.
	if cfg.HFT.Strategies != nil {
		out.HFT.Strategies = make(map[string]bool, len(cfg.HFT.Strategies))
		for k, v := range cfg.HFT.Strategies {
			out.HFT.Strategies[k] = v
		}
	}
	if cfg.HFT.Params != nil {
		out.HFT.Params = make(map[string]any, len(cfg.HFT.Params))
		for k, v := range cfg.HFT.Params {
			out.HFT.Params[k] = v
		}
	}

	return out
}

const redacted = "***"

// redact replaces a non-empty string with the redacted placeholder.
func redact(s *string) {
	if *s != "" {
		*s = redacted
	}
}
