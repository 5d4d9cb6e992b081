package models

import "time"

// Asset is a physical thing a task runs against (a pump, a gate, a
// checkpoint location). Tour checkpoints use the GPS coordinate for route
// optimization; the multiplication factor is snapshotted onto instances.
type Asset struct {
	ID       uint   `gorm:"column:id;primaryKey;autoIncrement" json:"id"`
	Name     string `gorm:"column:name;size:255" json:"name"`
	Location string `gorm:"column:location;size:255" json:"location"`

	Latitude  float64 `gorm:"column:latitude;default:0" json:"latitude"`
	Longitude float64 `gorm:"column:longitude;default:0" json:"longitude"`

	MultiplicationFactor float64 `gorm:"column:multiplication_factor;default:1" json:"multiplication_factor"`

	CreatedAt time.Time `gorm:"column:created_at;autoCreateTime" json:"created_at"`
}

func (Asset) TableName() string {
	return "assets"
}
