package db

// Row is one record produced by a search pipeline.
type Row struct {
	Key      string
	Document []byte // stored JSON document
	Score    float64
}
