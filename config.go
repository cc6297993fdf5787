package listscrape

import (
	"net/url"
	"strconv"
	"time"
)

// Duplicate key policies for a single extraction pass.
const (
	DuplicateLast  = "last"
	DuplicateFirst = "first"
)

// Selectors maps a site's markup onto triggers and fields.
type Selectors struct {
	// Trigger matches the per-entity element on the list page that opens
	// its detail page.
	Trigger string `yaml:"trigger"`

	// ListItem, ListKey and ListValue describe labeled key/value blocks.
	// ListKey and ListValue are resolved inside each ListItem.
	ListItem  string `yaml:"list_item"`
	ListKey   string `yaml:"list_key"`
	ListValue string `yaml:"list_value"`

	// Table matches key/value tables; rows are "tr", cells are "td".
	Table string `yaml:"table"`

	// DuplicateKeys decides which value wins when one pass sees the same
	// key twice: DuplicateLast or DuplicateFirst.
	DuplicateKeys string `yaml:"duplicate_keys"`
}

// Config holds the run configuration. It is passed by value into each
// component and never read from global state.
type Config struct {
	BaseURL    string `yaml:"base_url"`
	PageParam  string `yaml:"page_param"`
	OutputPath string `yaml:"output"`
	BackupDir  string `yaml:"backup_dir"`

	StartPage    int `yaml:"start_page"`
	MaxPages     int `yaml:"max_pages"`
	ItemsPerPage int `yaml:"items_per_page"`

	ItemDelay   time.Duration `yaml:"item_delay"`
	ScrollDelay time.Duration `yaml:"scroll_delay"`
	SettleDelay time.Duration `yaml:"settle_delay"`

	PageLoadAttempts int           `yaml:"page_load_attempts"`
	ClickAttempts    int           `yaml:"click_attempts"`
	ItemAttempts     int           `yaml:"item_attempts"`
	RetryDelay       time.Duration `yaml:"retry_delay"`
	FailurePenalty   time.Duration `yaml:"failure_penalty"`

	PageDelayMin time.Duration `yaml:"page_delay_min"`
	PageDelayMax time.Duration `yaml:"page_delay_max"`

	NavigationTimeout time.Duration `yaml:"navigation_timeout"`

	Headless       bool `yaml:"headless"`
	BlockResources bool `yaml:"block_resources"`

	// BrowserBin is the Chrome binary to launch. Empty lets the launcher
	// find or download one.
	BrowserBin string `yaml:"browser_bin,omitempty"`

	Selectors Selectors `yaml:"selectors"`
}

// DefaultConfig returns the configuration for the DrugBank distributor list.
func DefaultConfig() Config {
	return Config{
		BaseURL:    "https://drugbank.vn/danh-sach/co-so-phan-phoi",
		PageParam:  "page",
		OutputPath: "data.json",
		BackupDir:  "backups",

		StartPage:    1,
		MaxPages:     55,
		ItemsPerPage: 20,

		ItemDelay:   1 * time.Second,
		ScrollDelay: 500 * time.Millisecond,
		SettleDelay: 1 * time.Second,

		PageLoadAttempts: 3,
		ClickAttempts:    3,
		ItemAttempts:     3,
		RetryDelay:       2 * time.Second,
		FailurePenalty:   4 * time.Second,

		PageDelayMin: 1 * time.Second,
		PageDelayMax: 2 * time.Second,

		NavigationTimeout: 30 * time.Second,

		Headless:       true,
		BlockResources: true,

		Selectors: Selectors{
			Trigger:       "tbody .btn-info",
			ListItem:      ".list-unstyled li",
			ListKey:       "h6 strong",
			ListValue:     "div",
			Table:         "table.table",
			DuplicateKeys: DuplicateLast,
		},
	}
}

// Validate returns an error if the configuration is not usable.
func (c Config) Validate() error {
	if c.BaseURL == "" {
		return Errorf(EINVALID, "base URL required")
	}
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return Errorf(EINVALID, "invalid base URL: %v", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return Errorf(EINVALID, "base URL must be absolute")
	}
	if c.PageParam == "" {
		return Errorf(EINVALID, "page parameter required")
	}
	if c.OutputPath == "" {
		return Errorf(EINVALID, "output path required")
	}
	if c.BackupDir == "" {
		return Errorf(EINVALID, "backup directory required")
	}
	if c.StartPage < 1 {
		return Errorf(EINVALID, "start page must be at least 1")
	}
	if c.MaxPages < c.StartPage {
		return Errorf(EINVALID, "max pages (%d) must not be below start page (%d)", c.MaxPages, c.StartPage)
	}
	if c.ItemsPerPage < 1 {
		return Errorf(EINVALID, "items per page must be positive")
	}
	if c.PageLoadAttempts < 1 || c.ClickAttempts < 1 || c.ItemAttempts < 1 {
		return Errorf(EINVALID, "attempt counts must be positive")
	}
	for name, d := range map[string]time.Duration{
		"item delay":      c.ItemDelay,
		"scroll delay":    c.ScrollDelay,
		"settle delay":    c.SettleDelay,
		"retry delay":     c.RetryDelay,
		"failure penalty": c.FailurePenalty,
		"page delay min":  c.PageDelayMin,
	} {
		if d < 0 {
			return Errorf(EINVALID, "%s cannot be negative", name)
		}
	}
	if c.PageDelayMax < c.PageDelayMin {
		return Errorf(EINVALID, "page delay max (%s) cannot be below min (%s)", c.PageDelayMax, c.PageDelayMin)
	}
	if c.NavigationTimeout <= 0 {
		return Errorf(EINVALID, "navigation timeout must be positive")
	}
	if c.Selectors.Trigger == "" {
		return Errorf(EINVALID, "trigger selector required")
	}
	switch c.Selectors.DuplicateKeys {
	case DuplicateLast, DuplicateFirst:
	default:
		return Errorf(EINVALID, "duplicate key policy must be %q or %q", DuplicateLast, DuplicateFirst)
	}
	return nil
}

// ListURL returns the list page URL for the given page number.
// Existing query parameters on BaseURL are kept.
func (c Config) ListURL(page int) string {
	u, err := url.Parse(c.BaseURL)
	if err != nil {
		return c.BaseURL
	}
	q := u.Query()
	q.Set(c.PageParam, strconv.Itoa(page))
	u.RawQuery = q.Encode()
	return u.String()
}
