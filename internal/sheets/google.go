package sheets

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	gsheets "google.golang.org/api/sheets/v4"

	"github.com/voc-insights/vocdash/internal/logging"
)

// ReadOnlyScope is the only scope the sampler requests.
const ReadOnlyScope = gsheets.SpreadsheetsReadonlyScope

// consentTimeout bounds how long the loopback listener waits for the browser.
const consentTimeout = 5 * time.Minute

// GoogleAuth locates the credentials for the Sheets API.
type GoogleAuth struct {
	// CredentialsFile is either a service account key or an OAuth client
	// secret downloaded from the Cloud console.
	CredentialsFile string
	// TokenFile caches the OAuth token for client-secret credentials.
	TokenFile string
	// Interactive enables the one-time browser consent when no token is
	// cached. The consent URL is written to Out.
	Interactive bool
	Out         io.Writer
}

// GoogleWorkbook reads a spreadsheet through the Sheets v4 API.
type GoogleWorkbook struct {
	svc           *gsheets.Service
	spreadsheetID string
}

// NewGoogleWorkbook opens the spreadsheet with the given ID.
func NewGoogleWorkbook(ctx context.Context, spreadsheetID string, auth GoogleAuth) (*GoogleWorkbook, error) {
	if spreadsheetID == "" {
		return nil, errors.New("spreadsheet id is not set (GOOGLE_SHEETS_SPREADSHEET_ID)")
	}

	opt, err := clientOption(ctx, auth)
	if err != nil {
		return nil, err
	}
	svc, err := gsheets.NewService(ctx, opt)
	if err != nil {
		return nil, fmt.Errorf("creating sheets service: %w", err)
	}
	return &GoogleWorkbook{svc: svc, spreadsheetID: spreadsheetID}, nil
}

// Sheet looks the sheet up by title and captures its grid size.
func (w *GoogleWorkbook) Sheet(ctx context.Context, name string) (Sheet, error) {
	ss, err := w.svc.Spreadsheets.Get(w.spreadsheetID).
		Fields("sheets.properties").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("fetching spreadsheet metadata: %w", err)
	}
	for _, s := range ss.Sheets {
		if s.Properties == nil || s.Properties.Title != name {
			continue
		}
		rows := 0
		if s.Properties.GridProperties != nil {
			rows = int(s.Properties.GridProperties.RowCount)
		}
		return &googleSheet{wb: w, name: name, rows: rows}, nil
	}
	return nil, fmt.Errorf("%w: %q", ErrSheetNotFound, name)
}

type googleSheet struct {
	wb   *GoogleWorkbook
	name string
	rows int
}

func (s *googleSheet) RowCount(ctx context.Context) (int, error) {
	return s.rows, nil
}

func (s *googleSheet) ReadRows(ctx context.Context, start, n int) ([][]string, error) {
	if n <= 0 {
		return nil, nil
	}
	resp, err := s.wb.svc.Spreadsheets.Values.Get(s.wb.spreadsheetID, rowRange(s.name, start, n)).
		ValueRenderOption("FORMATTED_VALUE").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("reading values: %w", err)
	}

	out := make([][]string, 0, len(resp.Values))
	for _, row := range resp.Values {
		cells := make([]string, len(row))
		for i, v := range row {
			cells[i] = fmt.Sprint(v)
		}
		out = append(out, cells)
	}
	return out, nil
}

// rowRange builds an A1 range covering whole rows, e.g. 'raw data'!2:4.
func rowRange(sheet string, start, n int) string {
	quoted := "'" + strings.ReplaceAll(sheet, "'", "''") + "'"
	return fmt.Sprintf("%s!%d:%d", quoted, start, start+n-1)
}

func clientOption(ctx context.Context, auth GoogleAuth) (option.ClientOption, error) {
	if auth.CredentialsFile == "" {
		return nil, errors.New("sheets credentials file is not set")
	}
	data, err := os.ReadFile(auth.CredentialsFile)
	if err != nil {
		return nil, fmt.Errorf("reading credentials: %w", err)
	}

	kind, err := credentialsKind(data)
	if err != nil {
		return nil, err
	}
	if kind != "client_secret" {
		creds, err := google.CredentialsFromJSON(ctx, data, ReadOnlyScope)
		if err != nil {
			return nil, fmt.Errorf("parsing credentials: %w", err)
		}
		return option.WithCredentials(creds), nil
	}

	cfg, err := google.ConfigFromJSON(data, ReadOnlyScope)
	if err != nil {
		return nil, fmt.Errorf("parsing oauth client: %w", err)
	}
	client, err := oauthClient(ctx, cfg, auth)
	if err != nil {
		return nil, err
	}
	return option.WithHTTPClient(client), nil
}

// credentialsKind reports "client_secret" for installed/web OAuth clients and
// the JSON "type" field otherwise.
func credentialsKind(data []byte) (string, error) {
	var shape struct {
		Type      string          `json:"type"`
		Installed json.RawMessage `json:"installed"`
		Web       json.RawMessage `json:"web"`
	}
	if err := json.Unmarshal(data, &shape); err != nil {
		return "", fmt.Errorf("parsing credentials: %w", err)
	}
	switch {
	case shape.Installed != nil || shape.Web != nil:
		return "client_secret", nil
	case shape.Type != "":
		return shape.Type, nil
	default:
		return "", errors.New("unrecognised credentials file")
	}
}

func oauthClient(ctx context.Context, cfg *oauth2.Config, auth GoogleAuth) (*http.Client, error) {
	tok, err := loadToken(auth.TokenFile)
	if err != nil {
		if !auth.Interactive {
			return nil, fmt.Errorf("no cached token at %s and interactive consent is disabled", auth.TokenFile)
		}
		out := auth.Out
		if out == nil {
			out = io.Discard
		}
		tok, err = consent(ctx, cfg, func(authURL string) {
			fmt.Fprintf(out, "Open this URL in a browser to authorize read access to the sheet:\n%s\n", authURL)
		})
		if err != nil {
			return nil, err
		}
		if err := saveToken(auth.TokenFile, tok); err != nil {
			return nil, err
		}
	}

	// Persist refreshed tokens so the next run does not need consent again.
	src := &savingTokenSource{
		base: cfg.TokenSource(ctx, tok),
		path: auth.TokenFile,
		last: tok.AccessToken,
	}
	return oauth2.NewClient(ctx, oauth2.ReuseTokenSource(tok, src)), nil
}

// consent runs the installed-app flow against a loopback redirect. The
// browser is sent to authURL via notify; Google redirects back to a listener
// on 127.0.0.1 carrying the code, which is exchanged for a token.
func consent(ctx context.Context, cfg *oauth2.Config, notify func(authURL string)) (*oauth2.Token, error) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return nil, fmt.Errorf("starting consent listener: %w", err)
	}
	defer ln.Close()

	state, err := newState()
	if err != nil {
		return nil, err
	}

	c := *cfg
	c.RedirectURL = fmt.Sprintf("http://%s/", ln.Addr().String())

	codes := make(chan string, 1)
	failures := make(chan error, 1)
	srv := &http.Server{
		ReadHeaderTimeout: 10 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			q := r.URL.Query()
			var err error
			switch {
			case q.Get("state") != state:
				err = errors.New("authorization callback state mismatch")
			case q.Get("error") != "":
				err = fmt.Errorf("authorization denied: %s", q.Get("error"))
			case q.Get("code") == "":
				err = errors.New("authorization callback carried no code")
			}
			if err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				select {
				case failures <- err:
				default:
				}
				return
			}
			fmt.Fprintln(w, "Authorization complete. You can close this window.")
			select {
			case codes <- q.Get("code"):
			default:
			}
		}),
	}
	go func() { _ = srv.Serve(ln) }()
	defer srv.Close()

	notify(c.AuthCodeURL(state, oauth2.AccessTypeOffline))

	wait, cancel := context.WithTimeout(ctx, consentTimeout)
	defer cancel()

	var code string
	select {
	case code = <-codes:
	case err := <-failures:
		return nil, err
	case <-wait.Done():
		return nil, fmt.Errorf("waiting for authorization: %w", wait.Err())
	}

	tok, err := c.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchanging authorization code: %w", err)
	}
	return tok, nil
}

func newState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generating oauth state: %w", err)
	}
	return hex.EncodeToString(b), nil
}

type savingTokenSource struct {
	base oauth2.TokenSource
	path string
	last string
}

func (s *savingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := s.base.Token()
	if err != nil {
		return nil, err
	}
	if tok.AccessToken != s.last {
		s.last = tok.AccessToken
		if err := saveToken(s.path, tok); err != nil {
			logging.Log.WithError(err).WithField("path", s.path).Warn("could not persist refreshed sheets token")
		}
	}
	return tok, nil
}

func loadToken(path string) (*oauth2.Token, error) {
	if path == "" {
		return nil, errors.New("token file is not set")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var tok oauth2.Token
	if err := json.Unmarshal(data, &tok); err != nil {
		return nil, fmt.Errorf("parsing token file: %w", err)
	}
	return &tok, nil
}

func saveToken(path string, tok *oauth2.Token) error {
	if path == "" {
		return nil
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return fmt.Errorf("creating token directory: %w", err)
		}
	}
	data, err := json.Marshal(tok)
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return fmt.Errorf("writing token file: %w", err)
	}
	return nil
}
