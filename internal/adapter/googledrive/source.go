// Package googledrive lists and fetches documents from a Google Drive folder,
// exporting Google Docs as plain text and extracting text from PDFs.
package googledrive

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/drive/v3"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"docchat/internal/document"
)

const (
	mimeTypePDF       = "application/pdf"
	mimeTypeGoogleDoc = "application/vnd.google-apps.document"
	mimeTypeFolder    = "application/vnd.google-apps.folder"

	exportMimeText = "text/plain"

	// maxFetchSize bounds how much of a file we are willing to read.
	maxFetchSize = 20 << 20
)

var ErrNotFound = errors.New("document not found")

const listFields = "nextPageToken, files(id, name, mimeType, modifiedTime, webViewLink, size)"

// NewDriveService builds a Drive client from an offline refresh token.
func NewDriveService(ctx context.Context, clientID, clientSecret, refreshToken string) (*drive.Service, error) {
	conf := &oauth2.Config{
		ClientID:     clientID,
		ClientSecret: clientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       []string{drive.DriveReadonlyScope},
	}
	ts := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})
	return drive.NewService(ctx, option.WithTokenSource(ts))
}

// Source reads documents out of Google Drive. PDF text extraction shells out
// to pdftotext through the injected runner.
type Source struct {
	svc    *drive.Service
	runner CommandRunner
}

func NewSource(svc *drive.Service, runner CommandRunner) *Source {
	if runner == nil {
		runner = ExecRunner{}
	}
	return &Source{svc: svc, runner: runner}
}

// List returns the PDFs and Google Docs under folderID, recursing into
// subfolders. An empty folderID scans the whole Drive (no recursion needed:
// the query already matches everything).
func (s *Source) List(ctx context.Context, folderID string) ([]document.RemoteFile, error) {
	files, err := s.listFolder(ctx, folderID)
	if err != nil {
		return nil, err
	}

	if folderID != "" {
		subfolders, err := s.listSubfolders(ctx, folderID)
		if err != nil {
			slog.WarnContext(ctx, "failed to list subfolders", "folder_id", folderID, "error", err)
		}
		for _, sub := range subfolders {
			nested, err := s.List(ctx, sub)
			if err != nil {
				slog.WarnContext(ctx, "failed to scan subfolder", "folder_id", sub, "error", err)
				continue
			}
			files = append(files, nested...)
		}
	}

	return files, nil
}

func (s *Source) listFolder(ctx context.Context, folderID string) ([]document.RemoteFile, error) {
	query := fmt.Sprintf("(mimeType='%s' or mimeType='%s') and trashed=false", mimeTypePDF, mimeTypeGoogleDoc)
	if folderID != "" {
		query += fmt.Sprintf(" and '%s' in parents", folderID)
	}

	var out []document.RemoteFile
	pageToken := ""
	for {
		call := s.svc.Files.List().Q(query).Fields(listFields).PageSize(1000).Context(ctx)
		if pageToken != "" {
			call = call.PageToken(pageToken)
		}
		res, err := call.Do()
		if err != nil {
			return nil, wrapAPIError("list files", err)
		}

		for _, f := range res.Files {
			out = append(out, remoteFile(f))
		}

		if res.NextPageToken == "" {
			return out, nil
		}
		pageToken = res.NextPageToken
	}
}

func (s *Source) listSubfolders(ctx context.Context, folderID string) ([]string, error) {
	query := fmt.Sprintf("mimeType='%s' and '%s' in parents and trashed=false", mimeTypeFolder, folderID)
	res, err := s.svc.Files.List().Q(query).Fields("files(id)").Context(ctx).Do()
	if err != nil {
		return nil, wrapAPIError("list subfolders", err)
	}
	ids := make([]string, 0, len(res.Files))
	for _, f := range res.Files {
		ids = append(ids, f.Id)
	}
	return ids, nil
}

// Fetch downloads one document and returns it with extracted text content.
func (s *Source) Fetch(ctx context.Context, id string) (*document.Document, error) {
	meta, err := s.svc.Files.Get(id).Fields("id, name, mimeType, size, modifiedTime, webViewLink").Context(ctx).Do()
	if err != nil {
		return nil, wrapAPIError("get file metadata", err)
	}

	var content string
	switch meta.MimeType {
	case mimeTypeGoogleDoc:
		content, err = s.export(ctx, id, exportMimeText)
	case mimeTypePDF:
		content, err = s.downloadPDF(ctx, id, meta.Name)
	default:
		return nil, fmt.Errorf("unsupported mime type %q for file %s", meta.MimeType, id)
	}
	if err != nil {
		return nil, err
	}

	doc := &document.Document{
		ID:           meta.Id,
		Title:        meta.Name,
		Content:      content,
		SourceURL:    fileURL(meta.WebViewLink, meta.Id),
		ModifiedTime: parseModifiedTime(meta.ModifiedTime),
	}
	slog.InfoContext(ctx, "fetched document", "document_id", doc.ID, "title", doc.Title, "content_len", len(doc.Content))
	return doc, nil
}

func (s *Source) export(ctx context.Context, id, mime string) (string, error) {
	resp, err := s.svc.Files.Export(id, mime).Context(ctx).Download()
	if err != nil {
		return "", wrapAPIError("export file", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		return "", fmt.Errorf("read exported content: %w", err)
	}
	return string(data), nil
}

func (s *Source) downloadPDF(ctx context.Context, id, name string) (string, error) {
	resp, err := s.svc.Files.Get(id).Context(ctx).Download()
	if err != nil {
		return "", wrapAPIError("download file", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxFetchSize))
	if err != nil {
		return "", fmt.Errorf("read pdf content: %w", err)
	}

	text, err := ExtractPDFText(ctx, s.runner, data)
	if err != nil {
		return "", fmt.Errorf("extract text from %s: %w", name, err)
	}
	return text, nil
}

func remoteFile(f *drive.File) document.RemoteFile {
	return document.RemoteFile{
		ID:           f.Id,
		Title:        f.Name,
		MimeType:     f.MimeType,
		Size:         f.Size,
		URL:          fileURL(f.WebViewLink, f.Id),
		ModifiedTime: parseModifiedTime(f.ModifiedTime),
	}
}

func fileURL(webViewLink, id string) string {
	if webViewLink != "" {
		return webViewLink
	}
	return fmt.Sprintf("https://drive.google.com/file/d/%s/view", id)
}

func parseModifiedTime(value string) *time.Time {
	if value == "" {
		return nil
	}
	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return nil
	}
	return &t
}

func wrapAPIError(op string, err error) error {
	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		if apiErr.Code == 404 {
			return fmt.Errorf("%s: %w", op, ErrNotFound)
		}
		if apiErr.Code == 403 {
			return fmt.Errorf("%s: insufficient drive permissions: %w", op, err)
		}
	}
	if strings.Contains(err.Error(), "oauth2") {
		return fmt.Errorf("%s: drive authentication failed: %w", op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}
