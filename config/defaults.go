package config

func defaultConfig() *Config {
	return &Config{
		DataDirectory: "~/.local/share/terp",
		Provider:      "openai",
		Model:         "",
		Temperature:   0.001,
		OllamaHost:    "http://localhost:11434",
		ContextWindow: 2000,
		MaxTokens:     750,
		Security:      "plaintext",
	}
}
