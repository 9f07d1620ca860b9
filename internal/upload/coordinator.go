// Package upload sube lotes de archivos al almacenamiento remoto con semántica
// todo-o-nada: si un archivo falla, se borran los que ya se habían subido.
package upload

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// ErrDeleteUnsupported lo devuelve un ObjectStore cuyo servidor no expone borrado.
var ErrDeleteUnsupported = errors.New("delete endpoint not available")

// ObjectStore es el almacenamiento remoto de archivos.
type ObjectStore interface {
	Upload(ctx context.Context, file File, category Category, onProgress func(percent int)) (url string, err error)
	// Delete debe ser idempotente: una URL desconocida no es un error.
	Delete(ctx context.Context, url string) error
}

// ProgressFunc recibe el índice del archivo en el lote y un porcentaje 0..100.
type ProgressFunc func(index, percent int)

type Uploaded struct {
	URL   string `json:"url"`
	Index int    `json:"index"`
}

type Failure struct {
	Index int    `json:"index"`
	Name  string `json:"name"`
	Err   error  `json:"-"`
}

type BatchResult struct {
	Uploaded []Uploaded `json:"uploaded"`
	Failed   []Failure  `json:"failed"`
	// URLs que no se pudieron borrar en el rollback
	Orphaned []string `json:"orphaned,omitempty"`
}

// URLs devuelve las URLs subidas en el orden de entrada.
func (r *BatchResult) URLs() []string {
	return urlsOf(r.Uploaded)
}

// BatchError envuelve el primer error de subida del lote.
type BatchError struct {
	Index    int
	Name     string
	Err      error
	Orphaned []string
}

func (e *BatchError) Error() string {
	return fmt.Sprintf("upload %q (file %d) failed: %v", e.Name, e.Index, e.Err)
}

func (e *BatchError) Unwrap() error { return e.Err }

type Coordinator struct {
	store ObjectStore
}

func NewCoordinator(store ObjectStore) *Coordinator {
	return &Coordinator{store: store}
}

// batch es el registro en memoria de una llamada; nunca se comparte.
type batch struct {
	files    []File
	uploaded []Uploaded
	failedAt int
}

// UploadBatch sube files en orden, de a uno. Ante la primera falla en k borra
// los archivos [0, k) y devuelve el error original; k y los siguientes no se
// suben. El borrado es best-effort: si falla se loguea y las URLs quedan en
// Orphaned. Una vez iniciado, el lote no se cancela.
func (c *Coordinator) UploadBatch(ctx context.Context, files []File, category Category, onProgress ProgressFunc) (*BatchResult, error) {
	if !category.Valid() {
		return nil, fmt.Errorf("unknown upload category %q", category)
	}
	ctx = context.WithoutCancel(ctx)

	b := &batch{files: files, uploaded: make([]Uploaded, 0, len(files)), failedAt: -1}

	for i, f := range b.files {
		report := progressFor(i, onProgress)
		report(0)

		url, err := c.store.Upload(ctx, f, category, report)
		if err != nil {
			b.failedAt = i
			log.Printf("[Upload] falló %q (%d/%d): %v", f.Name, i+1, len(files), err)

			orphaned := c.rollback(ctx, urlsOf(b.uploaded))
			return &BatchResult{
					Uploaded: []Uploaded{},
					Failed:   []Failure{{Index: i, Name: f.Name, Err: err}},
					Orphaned: orphaned,
				}, &BatchError{
					Index:    i,
					Name:     f.Name,
					Err:      err,
					Orphaned: orphaned,
				}
		}

		report(100)
		b.uploaded = append(b.uploaded, Uploaded{URL: url, Index: i})
	}

	return &BatchResult{Uploaded: b.uploaded, Failed: []Failure{}}, nil
}

// Discard borra archivos ya subidos que nadie va a usar, con la misma semántica
// que el rollback de un lote. Devuelve las URLs que no pudo borrar.
func (c *Coordinator) Discard(ctx context.Context, urls []string) []string {
	return c.rollback(context.WithoutCancel(ctx), urls)
}

// rollback borra en orden inverso y devuelve las URLs que no pudo borrar.
func (c *Coordinator) rollback(ctx context.Context, urls []string) []string {
	var orphaned []string
	for i := len(urls) - 1; i >= 0; i-- {
		u := urls[i]
		err := c.store.Delete(ctx, u)
		switch {
		case err == nil:
			continue
		case errors.Is(err, ErrDeleteUnsupported):
			log.Printf("[Upload] WARN: no hay endpoint de borrado, queda huérfano %s", u)
		default:
			log.Printf("[Upload] WARN: no se pudo borrar %s, puede quedar huérfano: %v", u, err)
		}
		orphaned = append(orphaned, u)
	}
	return orphaned
}

func urlsOf(uploaded []Uploaded) []string {
	out := make([]string, 0, len(uploaded))
	for _, u := range uploaded {
		out = append(out, u.URL)
	}
	return out
}

// progressFor acota el porcentaje a 0..100 y no repite ni retrocede valores.
func progressFor(index int, fn ProgressFunc) func(int) {
	last := -1
	return func(p int) {
		if fn == nil {
			return
		}
		p = max(0, min(100, p))
		if p <= last {
			return
		}
		last = p
		fn(index, p)
	}
}
