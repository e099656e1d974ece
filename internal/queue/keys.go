package queue

import "github.com/google/uuid"

const (
	queueKey      = "jobs:queue"
	processingKey = "jobs:processing"
	failedKey     = "jobs:failed"
	dataKeyPrefix = "jobs:data:"
)

// DataKey returns the key holding the JSON body of a job.
func DataKey(id uuid.UUID) string {
	return dataKeyPrefix + id.String()
}

func dataKey(id string) string {
	return dataKeyPrefix + id
}
