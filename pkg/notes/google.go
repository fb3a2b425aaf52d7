package notes

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/docs/v1"
	"google.golang.org/api/option"
)

// GoogleDocsClient handles OAuth2 authentication and Google Docs
// operations for note syncing. The dashboard drives the auth flow:
// it sends the user to AuthURL and feeds the returned code to
// HandleCallback.
type GoogleDocsClient struct {
	config      *oauth2.Config
	token       *oauth2.Token
	tokenPath   string
	docsService *docs.Service

	mu sync.RWMutex
}

// GoogleConfig configures the Google Docs client.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string // default http://localhost:8080/api/notes/callback
	TokenPath    string // default ~/.raspbot/google_token.json
}

// NewGoogleDocsClient creates a Google Docs client. A previously
// saved token is loaded if present, so the robot stays connected
// across restarts.
func NewGoogleDocsClient(cfg GoogleConfig) (*GoogleDocsClient, error) {
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		return nil, fmt.Errorf("google client ID and secret are required")
	}

	if cfg.RedirectURL == "" {
		cfg.RedirectURL = "http://localhost:8080/api/notes/callback"
	}
	if cfg.TokenPath == "" {
		homeDir, _ := os.UserHomeDir()
		cfg.TokenPath = filepath.Join(homeDir, ".raspbot", "google_token.json")
	}

	client := &GoogleDocsClient{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes: []string{
				"https://www.googleapis.com/auth/documents",
				"https://www.googleapis.com/auth/drive.file",
			},
			Endpoint: google.Endpoint,
		},
		tokenPath: cfg.TokenPath,
	}

	if err := client.loadToken(); err == nil {
		if err := client.initService(); err != nil {
			client.token = nil
		}
	}

	return client, nil
}

// IsAuthenticated reports whether the client has a valid token.
func (g *GoogleDocsClient) IsAuthenticated() bool {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.token != nil && g.token.Valid()
}

// AuthURL returns the OAuth2 authorization URL for user consent.
func (g *GoogleDocsClient) AuthURL() string {
	return g.config.AuthCodeURL("notes-state", oauth2.AccessTypeOffline, oauth2.ApprovalForce)
}

// HandleCallback exchanges the authorization code for a token and
// saves it for future sessions.
func (g *GoogleDocsClient) HandleCallback(code string) error {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	token, err := g.config.Exchange(ctx, code)
	if err != nil {
		return fmt.Errorf("failed to exchange code for token: %w", err)
	}

	g.mu.Lock()
	g.token = token
	g.mu.Unlock()

	if err := g.saveToken(); err != nil {
		fmt.Printf("⚠️  Failed to save token: %v\n", err)
	}

	if err := g.initService(); err != nil {
		return fmt.Errorf("failed to initialize docs service: %w", err)
	}

	return nil
}

// Disconnect clears the authentication and removes the stored token.
func (g *GoogleDocsClient) Disconnect() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	g.token = nil
	g.docsService = nil

	if err := os.Remove(g.tokenPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to remove token file: %w", err)
	}

	return nil
}

// CreateDoc creates a Google Doc with the given title and content.
func (g *GoogleDocsClient) CreateDoc(title, content string) (string, error) {
	g.mu.RLock()
	service := g.docsService
	g.mu.RUnlock()

	if service == nil {
		return "", fmt.Errorf("not authenticated - connect to Google first")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	createdDoc, err := service.Documents.Create(&docs.Document{Title: title}).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("failed to create document: %w", err)
	}

	if content != "" {
		requests := []*docs.Request{
			{
				InsertText: &docs.InsertTextRequest{
					Location: &docs.Location{Index: 1},
					Text:     content,
				},
			},
		}

		_, err = service.Documents.BatchUpdate(createdDoc.DocumentId, &docs.BatchUpdateDocumentRequest{
			Requests: requests,
		}).Context(ctx).Do()
		if err != nil {
			return createdDoc.DocumentId, fmt.Errorf("created doc but failed to add content: %w", err)
		}
	}

	return createdDoc.DocumentId, nil
}

// UpdateDoc replaces the content of an existing Google Doc.
func (g *GoogleDocsClient) UpdateDoc(docID, content string) error {
	g.mu.RLock()
	service := g.docsService
	g.mu.RUnlock()

	if service == nil {
		return fmt.Errorf("not authenticated - connect to Google first")
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	doc, err := service.Documents.Get(docID).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	// Docs content always ends with a newline the API will not let
	// us delete.
	endIndex := doc.Body.Content[len(doc.Body.Content)-1].EndIndex - 1

	var requests []*docs.Request
	if endIndex > 1 {
		requests = append(requests, &docs.Request{
			DeleteContentRange: &docs.DeleteContentRangeRequest{
				Range: &docs.Range{StartIndex: 1, EndIndex: endIndex},
			},
		})
	}
	requests = append(requests, &docs.Request{
		InsertText: &docs.InsertTextRequest{
			Location: &docs.Location{Index: 1},
			Text:     content,
		},
	})

	_, err = service.Documents.BatchUpdate(docID, &docs.BatchUpdateDocumentRequest{
		Requests: requests,
	}).Context(ctx).Do()
	if err != nil {
		return fmt.Errorf("failed to update document: %w", err)
	}

	return nil
}

// SyncNote pushes a note to Google Docs, creating a doc on first
// sync and updating it afterwards. The note's DocID is set on
// success; the caller persists the change.
func (g *GoogleDocsClient) SyncNote(note *Note) error {
	if !g.IsAuthenticated() {
		return fmt.Errorf("not authenticated - connect to Google first")
	}

	content := formatNoteForDoc(note)

	if note.DocID == "" {
		docID, err := g.CreateDoc(note.Title, content)
		if err != nil {
			return err
		}
		note.DocID = docID
		note.UpdatedAt = time.Now()
		return nil
	}

	if err := g.UpdateDoc(note.DocID, content); err != nil {
		return err
	}
	note.UpdatedAt = time.Now()
	return nil
}

// DocURL returns the URL to view a Google Doc.
func DocURL(docID string) string {
	return fmt.Sprintf("https://docs.google.com/document/d/%s/edit", docID)
}

// Status describes the Google Docs connection for the dashboard.
type Status struct {
	Connected bool   `json:"connected"`
	AuthURL   string `json:"auth_url,omitempty"`
}

// GetStatus returns the current connection status.
func (g *GoogleDocsClient) GetStatus() Status {
	status := Status{Connected: g.IsAuthenticated()}
	if !status.Connected {
		status.AuthURL = g.AuthURL()
	}
	return status
}

// initService initializes the Google Docs service with the current
// token.
func (g *GoogleDocsClient) initService() error {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.token == nil {
		return fmt.Errorf("no token available")
	}

	ctx := context.Background()
	service, err := docs.NewService(ctx, option.WithHTTPClient(g.config.Client(ctx, g.token)))
	if err != nil {
		return fmt.Errorf("failed to create docs service: %w", err)
	}

	g.docsService = service
	return nil
}

// loadToken loads the OAuth token from disk.
func (g *GoogleDocsClient) loadToken() error {
	data, err := os.ReadFile(g.tokenPath)
	if err != nil {
		return err
	}

	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return err
	}

	g.mu.Lock()
	g.token = &token
	g.mu.Unlock()

	return nil
}

// saveToken saves the OAuth token to disk.
func (g *GoogleDocsClient) saveToken() error {
	g.mu.RLock()
	token := g.token
	g.mu.RUnlock()

	if token == nil {
		return fmt.Errorf("no token to save")
	}

	dir := filepath.Dir(g.tokenPath)
	if err := os.MkdirAll(dir, 0700); err != nil {
		return err
	}

	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(g.tokenPath, data, 0600)
}

// formatNoteForDoc renders a note for display in a Google Doc.
func formatNoteForDoc(note *Note) string {
	var b strings.Builder

	fmt.Fprintf(&b, "%s\n\n", note.Title)
	fmt.Fprintf(&b, "📝 Note\n%s\n\n", note.Content)

	if len(note.Tags) > 0 {
		fmt.Fprintf(&b, "🏷️ Tags: %s\n\n", strings.Join(note.Tags, ", "))
	}

	b.WriteString("---\n")
	fmt.Fprintf(&b, "Created: %s\n", note.CreatedAt.Format("January 2, 2006"))
	fmt.Fprintf(&b, "Last Updated: %s\n", note.UpdatedAt.Format("January 2, 2006 3:04 PM"))

	return b.String()
}
