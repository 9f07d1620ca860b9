package client

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"

	"order-lifecycle-service/internal/apperr"
	"order-lifecycle-service/internal/dto"
	"order-lifecycle-service/internal/upload"
)

// Upload manda un archivo como multipart a POST /files y reporta el avance
// a medida que se lee el contenido.
func (c *Client) Upload(ctx context.Context, file upload.File, category upload.Category, onProgress func(percent int)) (string, error) {
	src, err := file.Open()
	if err != nil {
		return "", fmt.Errorf("open %q: %w", file.Name, err)
	}

	pr, pw := io.Pipe()
	defer pr.Close()
	mw := multipart.NewWriter(pw)

	// src se cierra acá: el servidor puede responder antes de leer todo el body
	go func() {
		defer src.Close()
		err := writeMultipart(mw, file, category, upload.NewProgressReader(src, file.Size, onProgress))
		if err == nil {
			err = mw.Close()
		}
		pw.CloseWithError(err)
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/files", pr)
	if err != nil {
		return "", err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	resp, err := c.do(req)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		return "", decodeError(resp)
	}

	var out dto.UploadResponse
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil || out.URL == "" {
		return "", &apperr.RemoteError{StatusCode: resp.StatusCode, Message: "upload response has no url", Err: err}
	}
	return out.URL, nil
}

func writeMultipart(mw *multipart.Writer, file upload.File, category upload.Category, content io.Reader) error {
	if err := mw.WriteField("category", string(category)); err != nil {
		return err
	}
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", fmt.Sprintf(`form-data; name="file"; filename=%q`, file.Name))
	ct := file.ContentType
	if ct == "" {
		ct = "application/octet-stream"
	}
	h.Set("Content-Type", ct)

	part, err := mw.CreatePart(h)
	if err != nil {
		return err
	}
	_, err = io.Copy(part, content)
	return err
}

// Delete borra un archivo por su URL. Una URL desconocida no es error; si el
// servidor no tiene endpoint de borrado devuelve upload.ErrDeleteUnsupported.
func (c *Client) Delete(ctx context.Context, fileURL string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, fileURL, nil)
	if err != nil {
		return err
	}
	resp, err := c.do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode < 300, resp.StatusCode == http.StatusNotFound, resp.StatusCode == http.StatusGone:
		return nil
	case resp.StatusCode == http.StatusMethodNotAllowed, resp.StatusCode == http.StatusNotImplemented:
		return upload.ErrDeleteUnsupported
	default:
		return decodeError(resp)
	}
}
