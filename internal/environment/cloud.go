package environment

import "time"

// Cloud looks up the bulk cloud coverage
type Cloud struct {
	indexer
}

// NewCloud anchors a cloud series at the survey start
func NewCloud(series *Series, initial time.Time) *Cloud {
	return &Cloud{indexer: newIndexer(series, initial)}
}

// GetCloud returns the cloud coverage deltaTime seconds after the survey start
func (c *Cloud) GetCloud(deltaTime float64) float64 {
	return c.lookup(deltaTime)
}
