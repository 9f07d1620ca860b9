package payment

import (
	"context"
	"fmt"
	"slices"

	"order-lifecycle-service/internal/apperr"
	"order-lifecycle-service/internal/model"
	"order-lifecycle-service/internal/upload"
)

// MaxReceiptBytes es el tamaño máximo de cada comprobante.
const MaxReceiptBytes = 5 << 20

type queued struct {
	file    upload.File
	preview upload.Handle
}

// ReceiptQueue junta los comprobantes de un pago: URLs ya subidas más archivos
// locales pendientes. Nunca supera model.MaxReceiptImages en total.
type ReceiptQueue struct {
	previews  *upload.Previews
	committed []string
	pending   []queued
}

// NewReceiptQueue arranca con las URLs que la orden ya tiene. previews puede ser nil.
func NewReceiptQueue(committed []string, previews *upload.Previews) *ReceiptQueue {
	return &ReceiptQueue{
		previews:  previews,
		committed: slices.Clone(committed),
	}
}

func (q *ReceiptQueue) Len() int {
	return len(q.committed) + len(q.pending)
}

// URLs devuelve los comprobantes ya subidos, en orden de subida.
func (q *ReceiptQueue) URLs() []string {
	return append([]string{}, q.committed...)
}

// plannedURLs son las URLs que tendría la orden después de Commit.
func (q *ReceiptQueue) plannedURLs() []string {
	out := q.URLs()
	for i := range q.pending {
		out = append(out, fmt.Sprintf("https://pending.invalid/%d", i))
	}
	return out
}

func (q *ReceiptQueue) Pending() []upload.File {
	out := make([]upload.File, 0, len(q.pending))
	for _, p := range q.pending {
		out = append(out, p.file)
	}
	return out
}

// PendingPreviews devuelve los handles de vista previa, alineados con Pending.
func (q *ReceiptQueue) PendingPreviews() []upload.Handle {
	out := make([]upload.Handle, 0, len(q.pending))
	for _, p := range q.pending {
		out = append(out, p.preview)
	}
	return out
}

// Add encola una selección de archivos. Si alguno no es válido o se supera el
// tope, no se encola ninguno y la cola queda como estaba.
func (q *ReceiptQueue) Add(files ...upload.File) error {
	if q.Len()+len(files) > model.MaxReceiptImages {
		return apperr.Invalid("receiptImages", "at most %d images allowed, %d already selected", model.MaxReceiptImages, q.Len())
	}
	for i, f := range files {
		if !f.IsImage() {
			return apperr.Invalid(fmt.Sprintf("files[%d]", i), "%q is not an image", f.Name)
		}
		if f.Size > MaxReceiptBytes {
			return apperr.Invalid(fmt.Sprintf("files[%d]", i), "%q is larger than 5 MB", f.Name)
		}
	}

	added := make([]queued, 0, len(files))
	for _, f := range files {
		item := queued{file: f}
		if q.previews != nil {
			h, err := q.previews.Create(f)
			if err != nil {
				q.revoke(added)
				return fmt.Errorf("preview %q: %w", f.Name, err)
			}
			item.preview = h
		}
		added = append(added, item)
	}
	q.pending = append(q.pending, added...)
	return nil
}

// RemovePending saca un archivo local de la cola.
func (q *ReceiptQueue) RemovePending(i int) error {
	if i < 0 || i >= len(q.pending) {
		return apperr.Invalid("files", "no pending file at position %d", i)
	}
	q.revoke(q.pending[i : i+1])
	q.pending = slices.Delete(q.pending, i, i+1)
	return nil
}

// RemoveCommitted quita una URL de la cola; no llama al servidor.
func (q *ReceiptQueue) RemoveCommitted(url string) bool {
	i := slices.Index(q.committed, url)
	if i < 0 {
		return false
	}
	q.committed = slices.Delete(q.committed, i, i+1)
	return true
}

// Commit sube los pendientes con el coordinador. Si el lote falla los archivos
// siguen en la cola para reintentar.
func (q *ReceiptQueue) Commit(ctx context.Context, c *upload.Coordinator, onProgress upload.ProgressFunc) error {
	if len(q.pending) == 0 {
		return nil
	}
	res, err := c.UploadBatch(ctx, q.Pending(), upload.CategoryReceipts, onProgress)
	if err != nil {
		return err
	}
	q.committed = append(q.committed, res.URLs()...)
	q.revoke(q.pending)
	q.pending = nil
	return nil
}

// Close libera las vistas previas pendientes.
func (q *ReceiptQueue) Close() {
	q.revoke(q.pending)
}

func (q *ReceiptQueue) revoke(items []queued) {
	if q.previews == nil {
		return
	}
	for _, it := range items {
		if it.preview != "" {
			q.previews.Revoke(it.preview)
		}
	}
}
