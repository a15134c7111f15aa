package config

// APIConfig configures the HTTP API of the serve command.
type APIConfig struct {
	Addr string `json:"addr" validate:"required"`
	// Token, when set, is required as a bearer token on /api routes.
	Token string `json:"token"`
	// JWTSecret, when set, accepts HS256 bearer tokens signed with it.
	JWTSecret string `json:"jwt_secret"`
	// MaxConcurrentRuns bounds the optimisations running at once.
	MaxConcurrentRuns int `json:"max_concurrent_runs" validate:"gte=0"`
}

func (c *APIConfig) SetDefaults() {
	if c.Addr == "" {
		c.Addr = ":8080"
	}
	if c.MaxConcurrentRuns == 0 {
		c.MaxConcurrentRuns = 1
	}
}

func (c APIConfig) Validate() error { return structErr(c) }
