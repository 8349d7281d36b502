package client

import "context"

// ProcessorService handles lifecycle processor API calls
type ProcessorService struct {
	client *Client
}

// Run triggers one processing pass and returns its outcome
func (s *ProcessorService) Run(ctx context.Context) (*ProcessorRun, error) {
	var run ProcessorRun
	if err := s.client.doRequest(ctx, "POST", "/api/v1/processor/run", nil, &run); err != nil {
		return nil, err
	}

	return &run, nil
}
