package entity

import "time"

// Product referencia mínima a un insumo del catálogo (el CRUD vive en otro módulo).
type Product struct {
	ID          string
	Name        string
	UnitMeasure string
	CreatedAt   time.Time
}
