package main

import (
	"context"
	"fmt"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
)

var uploadCmd = &cobra.Command{
	Use:   "upload <file>",
	Short: "Upload a resume file",
	Long:  "Streams a file from disk to /api/resume as multipart form data and prints the stored id and url.",
	Args:  cobra.ExactArgs(1),
	RunE:  runUpload,
}

var uploadContentType string

func init() {
	uploadCmd.Flags().StringVar(&uploadContentType, "content-type", "", "Content type (default from file extension, else application/pdf)")
	rootCmd.AddCommand(uploadCmd)
}

func runUpload(cmd *cobra.Command, args []string) error {
	path := args[0]
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open file: %w", err)
	}
	defer f.Close()

	contentType := uploadContentType
	if contentType == "" {
		contentType = mime.TypeByExtension(filepath.Ext(path))
	}
	if contentType == "" {
		contentType = "application/pdf"
	}

	endpoint := strings.TrimRight(apiBaseURL, "/") + "/api/resume"
	req, err := newUploadRequest(cmd.Context(), endpoint, filepath.Base(path), contentType, f)
	if err != nil {
		return err
	}

	body, err := doRequest(req)
	if err != nil {
		return fmt.Errorf("upload failed: %w", err)
	}
	fmt.Fprintln(cmd.OutOrStdout(), string(body))
	return nil
}

// newUploadRequest builds a multipart POST whose body is streamed from r. The
// copy starts only once the request exists, so a bad endpoint leaves r unread.
func newUploadRequest(ctx context.Context, endpoint, filename, contentType string, r io.Reader) (*http.Request, error) {
	pr, pw := io.Pipe()
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, pr)
	if err != nil {
		pr.Close()
		return nil, err
	}

	mw := multipart.NewWriter(pw)
	req.Header.Set("Content-Type", mw.FormDataContentType())

	go func() {
		h := make(textproto.MIMEHeader)
		h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename="%s"`, strings.ReplaceAll(filename, `"`, "")))
		h.Set("Content-Type", contentType)
		part, err := mw.CreatePart(h)
		if err == nil {
			_, err = io.Copy(part, r)
		}
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()
	return req, nil
}
