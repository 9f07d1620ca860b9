package upload

import (
	"bytes"
	"io"
	"strings"
)

// Category separa los archivos subidos en el almacenamiento remoto.
type Category string

const (
	CategoryReceipts Category = "receipts"
	CategoryBanners  Category = "banners"
	CategoryProducts Category = "products"
)

func (c Category) Valid() bool {
	switch c {
	case CategoryReceipts, CategoryBanners, CategoryProducts:
		return true
	}
	return false
}

// File es un archivo local pendiente de subir. Open se puede llamar más de
// una vez, así un lote fallido se puede reintentar sin volver a elegir archivos.
type File struct {
	Name        string
	ContentType string
	Size        int64
	Open        func() (io.ReadCloser, error)
}

// BytesFile arma un File a partir de un contenido en memoria.
func BytesFile(name, contentType string, data []byte) File {
	return File{
		Name:        name,
		ContentType: contentType,
		Size:        int64(len(data)),
		Open: func() (io.ReadCloser, error) {
			return io.NopCloser(bytes.NewReader(data)), nil
		},
	}
}

// IsImage indica si el tipo MIME es image/*.
func (f File) IsImage() bool {
	ct := strings.ToLower(strings.TrimSpace(f.ContentType))
	return strings.HasPrefix(ct, "image/") && len(ct) > len("image/")
}

// ProgressReader reporta el porcentaje leído sobre total.
type ProgressReader struct {
	r     io.Reader
	total int64
	read  int64
	fn    func(percent int)
}

func NewProgressReader(r io.Reader, total int64, fn func(percent int)) *ProgressReader {
	return &ProgressReader{r: r, total: total, fn: fn}
}

func (p *ProgressReader) Read(b []byte) (int, error) {
	n, err := p.r.Read(b)
	if n > 0 && p.total > 0 && p.fn != nil {
		p.read += int64(n)
		p.fn(int(p.read * 100 / p.total))
	}
	return n, err
}
