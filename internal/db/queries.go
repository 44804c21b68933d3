package db

type Conversation struct {
	ID        string `json:"id"`
	Title     string `json:"title"`
	Messages  int    `json:"messages"`
	CreatedAt string `json:"created_at"`
	UpdatedAt string `json:"updated_at"`
}

type Digest struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	CronExpr  string `json:"cron_expr"`
	URL       string `json:"url"`
	Enabled   bool   `json:"enabled"`
	LastRun   string `json:"last_run,omitempty"`
	CreatedAt string `json:"created_at"`
}

type Summary struct {
	ID        int64  `json:"id"`
	URL       string `json:"url"`
	Summary   string `json:"summary"`
	Words     int    `json:"words"`
	DigestID  *int64 `json:"digest_id,omitempty"`
	CreatedAt string `json:"created_at"`
}
