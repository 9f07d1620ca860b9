// Package orderstatus contiene la tabla de transiciones de una orden y el motor
// que pide los cambios de estado al servicio de órdenes.
package orderstatus

import (
	"slices"

	"order-lifecycle-service/internal/model"
)

// Transiciones permitidas. cancelled y returned son finales.
var transitions = map[model.Status][]model.Status{
	model.StatusPending:   {model.StatusConfirmed, model.StatusCancelled},
	model.StatusConfirmed: {model.StatusPreparing, model.StatusCancelled},
	model.StatusPreparing: {model.StatusReady, model.StatusCancelled},
	model.StatusReady:     {model.StatusReceived, model.StatusCancelled},
	model.StatusReceived:  {model.StatusReturned},
}

// NextStatuses devuelve los estados a los que se puede pasar desde current.
// Para estados finales o desconocidos devuelve un slice vacío.
func NextStatuses(current model.Status) []model.Status {
	next, ok := transitions[current]
	if !ok {
		return []model.Status{}
	}
	return slices.Clone(next)
}

// CanTransition indica si from -> to está en la tabla.
func CanTransition(from, to model.Status) bool {
	return slices.Contains(transitions[from], to)
}
