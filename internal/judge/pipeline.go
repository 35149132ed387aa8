package judge

import "context"

// Executor runs a prepared batch through the judge to terminal results.
type Executor interface {
	Execute(ctx context.Context, items []BatchItem) ([]Result, error)
}

// Pipeline chains batch creation and result polling.
type Pipeline struct {
	submitter *Submitter
	poller    *Poller
}

// NewPipeline builds a Pipeline over one judge client.
func NewPipeline(client Client, submitterOpts []SubmitterOption, pollerOpts []PollerOption) *Pipeline {
	return &Pipeline{
		submitter: NewSubmitter(client, submitterOpts...),
		poller:    NewPoller(client, pollerOpts...),
	}
}

// Execute submits the batch and polls until every run is terminal.
func (p *Pipeline) Execute(ctx context.Context, items []BatchItem) ([]Result, error) {
	tokens, err := p.submitter.Submit(ctx, items)
	if err != nil {
		return nil, err
	}
	return p.poller.Poll(ctx, tokens)
}

var _ Executor = (*Pipeline)(nil)
