package rabbitmq

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

func decodeJob(body []byte) (uuid.UUID, error) {
	var job sendJob
	if err := json.Unmarshal(body, &job); err != nil {
		return uuid.Nil, fmt.Errorf("unmarshal job: %w", err)
	}
	if job.ID == uuid.Nil {
		return uuid.Nil, errors.New("job without message id")
	}
	return job.ID, nil
}
