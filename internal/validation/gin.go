package validation

import (
	"reflect"

	"github.com/gin-gonic/gin/binding"
)

// GinValidator hace que ShouldBindJSON use el mismo validador que el cliente.
type GinValidator struct{}

var _ binding.StructValidator = GinValidator{}

func (GinValidator) ValidateStruct(obj any) error {
	if obj == nil {
		return nil
	}
	v := reflect.ValueOf(obj)
	for v.Kind() == reflect.Ptr {
		if v.IsNil() {
			return nil
		}
		v = v.Elem()
	}
	if v.Kind() != reflect.Struct {
		return nil
	}
	return Struct(obj)
}

func (GinValidator) Engine() any {
	return Engine()
}

// UseWithGin reemplaza el validador por defecto de gin.
func UseWithGin() {
	binding.Validator = GinValidator{}
}
