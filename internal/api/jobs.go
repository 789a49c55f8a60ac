package api

import (
	"context"
	"net/url"
	"time"
)

// Job is a posted gig. PostedBy/AcceptedBy are bare user ids; the backend
// populates richer objects on some routes but only the ids are needed here.
type Job struct {
	ID          string    `json:"_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Category    string    `json:"category"`
	Skills      []string  `json:"skills"`
	Price       float64   `json:"price"`
	Deadline    time.Time `json:"deadline,omitempty"`
	Status      string    `json:"status"`
	Payment     string    `json:"payment,omitempty"`
	PostedBy    string    `json:"postedBy"`
	AcceptedBy  string    `json:"acceptedBy,omitempty"`
	CreatedAt   time.Time `json:"createdAt,omitempty"`
}

// Bid is one student's offer on a job.
type Bid struct {
	ID        string  `json:"_id"`
	Student   string  `json:"student"`
	BidAmount float64 `json:"bidAmount"`
	Status    string  `json:"status"`
}

// Jobs lists open jobs, optionally filtered by search text and role.
func (c *Client) Jobs(ctx context.Context, search, role string) ([]Job, error) {
	q := url.Values{}
	if search != "" {
		q.Set("search", search)
	}
	if role != "" {
		q.Set("role", role)
	}
	path := "/jobs"
	if len(q) > 0 {
		path += "?" + q.Encode()
	}
	var out []Job
	if err := c.get(ctx, path, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Job fetches a single job, typically to refresh status after a payment step.
func (c *Client) Job(ctx context.Context, id string) (*Job, error) {
	var out Job
	if err := c.get(ctx, "/jobs/"+url.PathEscape(id), &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// MyJobs lists jobs posted by the current user.
func (c *Client) MyJobs(ctx context.Context) ([]Job, error) {
	var out []Job
	if err := c.get(ctx, "/jobs/my", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AcceptedJobs lists jobs the current user has accepted.
func (c *Client) AcceptedJobs(ctx context.Context) ([]Job, error) {
	var out []Job
	if err := c.get(ctx, "/jobs/accepted", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// AcceptJob accepts an open job as the current user.
func (c *Client) AcceptJob(ctx context.Context, id string) error {
	return c.put(ctx, "/jobs/"+url.PathEscape(id)+"/accept", nil, nil)
}

// CompleteJob marks an accepted job as completed.
func (c *Client) CompleteJob(ctx context.Context, id string) error {
	return c.put(ctx, "/jobs/"+url.PathEscape(id)+"/complete", nil, nil)
}

// PlaceBid places a bid on a job.
func (c *Client) PlaceBid(ctx context.Context, jobID string, amount float64) error {
	body := map[string]float64{"bidAmount": amount}
	return c.post(ctx, "/jobs/"+url.PathEscape(jobID)+"/bid", body, nil)
}

// Bids lists all bids on a job (poster only).
func (c *Client) Bids(ctx context.Context, jobID string) ([]Bid, error) {
	var out []Bid
	if err := c.get(ctx, "/jobs/"+url.PathEscape(jobID)+"/bids", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// MyBids lists the current user's bids across jobs.
func (c *Client) MyBids(ctx context.Context) ([]Bid, error) {
	var out []Bid
	if err := c.get(ctx, "/jobs/my-bids", &out); err != nil {
		return nil, err
	}
	return out, nil
}

// SelectBid marks a bid as the winner and opens the payment flow with the
// escrow gateway. The gateway itself is an opaque collaborator; this call
// only kicks it off.
func (c *Client) SelectBid(ctx context.Context, jobID, bidID string) error {
	return c.put(ctx, "/jobs/"+url.PathEscape(jobID)+"/select/"+url.PathEscape(bidID), nil, nil)
}

// ReleasePayment completes the payout for a finished job.
func (c *Client) ReleasePayment(ctx context.Context, jobID, payoutRef string) error {
	body := map[string]string{"payoutRef": payoutRef}
	return c.post(ctx, "/jobs/"+url.PathEscape(jobID)+"/release-payment", body, nil)
}
