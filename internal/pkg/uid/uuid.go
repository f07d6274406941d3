package uid

import "github.com/google/uuid"

// UUID hands out version 7 UUIDs, which sort by creation time.
type UUID struct{}

func NewUUID() *UUID { return &UUID{} }

// Generate panics when the random source fails; nothing sensible can run
// after that anyway.
func (*UUID) Generate() string {
	id, err := uuid.NewV7()
	if err != nil {
		panic("uid: uuid v7: " + err.Error())
	}
	return id.String()
}
