package upload

import (
	"fmt"
	"io"
	"sync"

	"github.com/google/uuid"
)

// Handle identifica una vista previa local de un archivo aún no subido.
type Handle string

type Preview struct {
	Name        string
	ContentType string
	Data        []byte
}

// Previews guarda en memoria las vistas previas hasta que se liberan.
type Previews struct {
	mu    sync.Mutex
	items map[Handle]*Preview
}

func NewPreviews() *Previews {
	return &Previews{items: make(map[Handle]*Preview)}
}

// Create lee el archivo y devuelve un handle nuevo.
func (p *Previews) Create(f File) (Handle, error) {
	rc, err := f.Open()
	if err != nil {
		return "", fmt.Errorf("open %q: %w", f.Name, err)
	}
	defer rc.Close()

	data, err := io.ReadAll(rc)
	if err != nil {
		return "", fmt.Errorf("read %q: %w", f.Name, err)
	}

	h := Handle(uuid.NewString())
	p.mu.Lock()
	p.items[h] = &Preview{Name: f.Name, ContentType: f.ContentType, Data: data}
	p.mu.Unlock()
	return h, nil
}

func (p *Previews) Open(h Handle) (*Preview, bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	pv, ok := p.items[h]
	return pv, ok
}

// Revoke libera el handle. Es idempotente.
func (p *Previews) Revoke(h Handle) {
	p.mu.Lock()
	delete(p.items, h)
	p.mu.Unlock()
}

func (p *Previews) Len() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.items)
}
