package scoreboard

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/goccy/go-json"
	"github.com/quantfade/longshot/pkg/types"
	"go.uber.org/zap"
)

// Client reads game results and live context from a public scoreboard
// API. It is the outcome source for settlement and the optional
// context source for evaluation.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     *zap.Logger
}

// Config holds scoreboard client configuration.
type Config struct {
	BaseURL string
	Timeout time.Duration
	Logger  *zap.Logger
}

// New creates a scoreboard client.
func New(cfg *Config) (*Client, error) {
	if cfg.BaseURL == "" {
		return nil, fmt.Errorf("base url cannot be empty")
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}

	return &Client{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: timeout},
		logger:     cfg.Logger,
	}, nil
}

// tickerGame is what a game winner ticker encodes: the date, the two
// teams and which team the YES side refers to.
type tickerGame struct {
	Date     time.Time
	AwayAbbr string
	HomeAbbr string
	YesTeam  string
}

// parseTicker decodes KXNBAGAME-25JAN15LACBOS-LAC style tickers: the
// event segment is a date followed by away and home three-letter
// abbreviations, the final segment names the YES team.
func parseTicker(ticker string) (tickerGame, error) {
	parts := strings.Split(ticker, "-")
	if len(parts) < 2 {
		return tickerGame{}, fmt.Errorf("ticker %q has no event segment", ticker)
	}

	event := parts[1]
	if len(event) != 13 {
		return tickerGame{}, fmt.Errorf("event segment %q is not date+teams", event)
	}

	rawDate := event[:7]
	month := rawDate[2:5]
	normalized := rawDate[:2] + month[:1] + strings.ToLower(month[1:]) + rawDate[5:]
	date, err := time.Parse("06Jan02", normalized)
	if err != nil {
		return tickerGame{}, fmt.Errorf("parse date %q: %w", rawDate, err)
	}

	game := tickerGame{
		Date:     date,
		AwayAbbr: event[7:10],
		HomeAbbr: event[10:13],
	}
	if len(parts) >= 3 {
		game.YesTeam = parts[2]
	}

	return game, nil
}

// scoreboardResponse trims the public scoreboard payload to the fields
// we read.
type scoreboardResponse struct {
	Events []struct {
		Competitions []struct {
			Competitors []struct {
				HomeAway string `json:"homeAway"`
				Winner   bool   `json:"winner"`
				Score    string `json:"score"`
				Team     struct {
					Abbreviation string `json:"abbreviation"`
				} `json:"team"`
			} `json:"competitors"`
			Status struct {
				Type struct {
					State     string `json:"state"` // pre, in, post
					Completed bool   `json:"completed"`
				} `json:"type"`
			} `json:"status"`
		} `json:"competitions"`
	} `json:"events"`
}

// fetchedGame is one game pulled off the scoreboard.
type fetchedGame struct {
	HomeAbbr   string
	AwayAbbr   string
	HomeScore  int
	AwayScore  int
	WinnerAbbr string
	State      string
	Completed  bool
}

// fetchDay pulls the scoreboard for one date.
func (c *Client) fetchDay(ctx context.Context, date time.Time) ([]fetchedGame, error) {
	url := fmt.Sprintf("%s/scoreboard?dates=%s", c.baseURL, date.Format("20060102"))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		FetchErrorsTotal.Inc()
		return nil, fmt.Errorf("fetch scoreboard: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		FetchErrorsTotal.Inc()
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("scoreboard returned %d: %s", resp.StatusCode, string(body))
	}

	var out scoreboardResponse
	err = json.NewDecoder(resp.Body).Decode(&out)
	if err != nil {
		FetchErrorsTotal.Inc()
		return nil, fmt.Errorf("decode scoreboard: %w", err)
	}

	var games []fetchedGame
	for _, event := range out.Events {
		for _, comp := range event.Competitions {
			game := fetchedGame{
				State:     comp.Status.Type.State,
				Completed: comp.Status.Type.Completed,
			}
			for _, competitor := range comp.Competitors {
				score, _ := strconv.Atoi(competitor.Score)
				switch competitor.HomeAway {
				case "home":
					game.HomeAbbr = competitor.Team.Abbreviation
					game.HomeScore = score
				case "away":
					game.AwayAbbr = competitor.Team.Abbreviation
					game.AwayScore = score
				}
				if competitor.Winner {
					game.WinnerAbbr = competitor.Team.Abbreviation
				}
			}
			games = append(games, game)
		}
	}

	return games, nil
}

// findGame locates the ticker's game on its scoreboard date.
func (c *Client) findGame(ctx context.Context, ticker string) (tickerGame, fetchedGame, error) {
	parsed, err := parseTicker(ticker)
	if err != nil {
		return tickerGame{}, fetchedGame{}, err
	}

	games, err := c.fetchDay(ctx, parsed.Date)
	if err != nil {
		return tickerGame{}, fetchedGame{}, err
	}

	for _, game := range games {
		if game.HomeAbbr == parsed.HomeAbbr && game.AwayAbbr == parsed.AwayAbbr {
			return parsed, game, nil
		}
	}

	return tickerGame{}, fetchedGame{}, fmt.Errorf("game %s@%s not on %s scoreboard",
		parsed.AwayAbbr, parsed.HomeAbbr, parsed.Date.Format("2006-01-02"))
}

// FindGame returns live context for the game behind a ticker.
func (c *Client) FindGame(ctx context.Context, ticker string) (types.GameContext, error) {
	_, game, err := c.findGame(ctx, ticker)
	if err != nil {
		return types.GameContext{}, err
	}

	return types.GameContext{
		HomeAbbr:  game.HomeAbbr,
		AwayAbbr:  game.AwayAbbr,
		HomeScore: game.HomeScore,
		AwayScore: game.AwayScore,
		Status:    stateLabel(game),
		Available: true,
	}, nil
}

func stateLabel(game fetchedGame) string {
	switch {
	case game.Completed:
		return "final"
	case game.State == "in":
		return "in_progress"
	default:
		return "scheduled"
	}
}

// Resolve answers whether a market's game has finished and which side
// won. A missing game or a scoreboard failure comes back as an
// unavailable report with no error: settlement retries later.
func (c *Client) Resolve(ctx context.Context, ticker string) (types.OutcomeReport, error) {
	report := types.OutcomeReport{
		Ticker:    ticker,
		CheckedAt: time.Now(),
	}

	parsed, game, err := c.findGame(ctx, ticker)
	if err != nil {
		c.logger.Debug("outcome-unavailable",
			zap.String("ticker", ticker),
			zap.Error(err))
		report.Status = types.OutcomeUnavailable
		report.Detail = err.Error()
		return report, nil
	}

	if !game.Completed {
		if game.State == "in" {
			report.Status = types.OutcomeInProgress
		} else {
			report.Status = types.OutcomeOpen
		}
		return report, nil
	}

	if game.WinnerAbbr == "" {
		report.Status = types.OutcomeUnavailable
		report.Detail = "game completed but winner missing"
		return report, nil
	}

	yesTeam := parsed.YesTeam
	if yesTeam == "" {
		yesTeam = parsed.HomeAbbr
	}

	report.Status = types.OutcomeFinal
	if game.WinnerAbbr == yesTeam {
		report.WinningSide = types.SideYes
	} else {
		report.WinningSide = types.SideNo
	}
	report.Detail = fmt.Sprintf("%s %d - %s %d",
		game.AwayAbbr, game.AwayScore, game.HomeAbbr, game.HomeScore)

	ResolutionsTotal.WithLabelValues(string(report.Status)).Inc()

	return report, nil
}

// teamResponse trims the public team payload.
type teamResponse struct {
	Team struct {
		Abbreviation string `json:"abbreviation"`
		Record       struct {
			Items []struct {
				Summary string `json:"summary"`
			} `json:"items"`
		} `json:"record"`
	} `json:"team"`
}

// TeamForm fetches a team's season record.
func (c *Client) TeamForm(ctx context.Context, team string) (types.TeamForm, error) {
	url := fmt.Sprintf("%s/teams/%s", c.baseURL, team)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return types.TeamForm{}, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		FetchErrorsTotal.Inc()
		return types.TeamForm{}, fmt.Errorf("fetch team %s: %w", team, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		FetchErrorsTotal.Inc()
		return types.TeamForm{}, fmt.Errorf("team api returned %d for %s", resp.StatusCode, team)
	}

	var out teamResponse
	err = json.NewDecoder(resp.Body).Decode(&out)
	if err != nil {
		return types.TeamForm{}, fmt.Errorf("decode team %s: %w", team, err)
	}

	form := types.TeamForm{Team: out.Team.Abbreviation}
	if len(out.Team.Record.Items) > 0 {
		wins, losses, err := parseRecord(out.Team.Record.Items[0].Summary)
		if err != nil {
			return types.TeamForm{}, fmt.Errorf("team %s: %w", team, err)
		}
		form.Wins = wins
		form.Losses = losses
	}

	return form, nil
}

// parseRecord splits a "30-10" season summary.
func parseRecord(summary string) (int, int, error) {
	parts := strings.SplitN(summary, "-", 2)
	if len(parts) != 2 {
		return 0, 0, fmt.Errorf("bad record summary %q", summary)
	}

	wins, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, 0, fmt.Errorf("bad record summary %q", summary)
	}
	losses, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, 0, fmt.Errorf("bad record summary %q", summary)
	}

	return wins, losses, nil
}
