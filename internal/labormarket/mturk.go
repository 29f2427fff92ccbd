package labormarket

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/mturk"
	mturktypes "github.com/aws/aws-sdk-go-v2/service/mturk/types"
)

const sandboxEndpoint = "https://mturk-requester-sandbox.us-east-1.amazonaws.com"

// mturkAPI is the narrow slice of the MTurk SDK client the package uses.
type mturkAPI interface {
	GetAssignment(ctx context.Context, in *mturk.GetAssignmentInput, opts ...func(*mturk.Options)) (*mturk.GetAssignmentOutput, error)
	ApproveAssignment(ctx context.Context, in *mturk.ApproveAssignmentInput, opts ...func(*mturk.Options)) (*mturk.ApproveAssignmentOutput, error)
	SendBonus(ctx context.Context, in *mturk.SendBonusInput, opts ...func(*mturk.Options)) (*mturk.SendBonusOutput, error)
	CreateAdditionalAssignmentsForHIT(ctx context.Context, in *mturk.CreateAdditionalAssignmentsForHITInput, opts ...func(*mturk.Options)) (*mturk.CreateAdditionalAssignmentsForHITOutput, error)
	UpdateExpirationForHIT(ctx context.Context, in *mturk.UpdateExpirationForHITInput, opts ...func(*mturk.Options)) (*mturk.UpdateExpirationForHITOutput, error)
}

// MTurkConfig configures the Mechanical Turk client.
type MTurkConfig struct {
	JobID     string // HIT identifier for this run
	Region    string
	Sandbox   bool
	AccessKey string // optional static credentials
	SecretKey string
	Endpoint  string // optional explicit endpoint override
}

// MTurkClient implements Client against Amazon Mechanical Turk.
type MTurkClient struct {
	api   mturkAPI
	jobID string
	now   func() time.Time
}

var _ Client = (*MTurkClient)(nil)

// NewMTurk builds a client against the live or sandbox MTurk endpoint.
func NewMTurk(ctx context.Context, cfg MTurkConfig) (*MTurkClient, error) {
	if strings.TrimSpace(cfg.JobID) == "" {
		return nil, fmt.Errorf("labormarket: mturk job id is required")
	}
	opts := []func(*awsconfig.LoadOptions) error{}
	if cfg.Region != "" {
		opts = append(opts, awsconfig.WithRegion(cfg.Region))
	}
	if cfg.AccessKey != "" || cfg.SecretKey != "" {
		opts = append(opts, awsconfig.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(cfg.AccessKey, cfg.SecretKey, "")))
	}
	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("labormarket: load aws config: %w", err)
	}
	endpoint := cfg.Endpoint
	if endpoint == "" && cfg.Sandbox {
		endpoint = sandboxEndpoint
	}
	api := mturk.NewFromConfig(awsCfg, func(o *mturk.Options) {
		if endpoint != "" {
			o.BaseEndpoint = aws.String(endpoint)
		}
	})
	return &MTurkClient{api: api, jobID: cfg.JobID, now: time.Now}, nil
}

func (c *MTurkClient) Recruit(ctx context.Context, count int) error {
	if count <= 0 {
		return nil
	}
	_, err := c.api.CreateAdditionalAssignmentsForHIT(ctx, &mturk.CreateAdditionalAssignmentsForHITInput{
		HITId:                         aws.String(c.jobID),
		NumberOfAdditionalAssignments: aws.Int32(int32(count)),
	})
	if err != nil {
		return fmt.Errorf("labormarket: recruit %d: %w", count, err)
	}
	return nil
}

func (c *MTurkClient) CloseRecruitment(ctx context.Context) error {
	return c.expire(ctx, c.jobID)
}

// ExpireJob expires the HIT that owns an assignment. The HIT is resolved
// from the assignment so runs that shard across multiple HITs still expire
// the right one; the configured job is the fallback.
func (c *MTurkClient) ExpireJob(ctx context.Context, assignmentRef string) error {
	jobID := c.jobID
	if assignmentRef != "" {
		out, err := c.api.GetAssignment(ctx, &mturk.GetAssignmentInput{
			AssignmentId: aws.String(assignmentRef),
		})
		if err != nil {
			return fmt.Errorf("labormarket: look up assignment %s: %w", assignmentRef, err)
		}
		if out.HIT != nil && out.HIT.HITId != nil {
			jobID = *out.HIT.HITId
		}
	}
	return c.expire(ctx, jobID)
}

// expire sets the HIT expiration into the past, which MTurk treats as an
// immediate expiry.
func (c *MTurkClient) expire(ctx context.Context, jobID string) error {
	at := c.now().Add(-time.Minute)
	_, err := c.api.UpdateExpirationForHIT(ctx, &mturk.UpdateExpirationForHITInput{
		HITId:    aws.String(jobID),
		ExpireAt: aws.Time(at),
	})
	if err != nil {
		return fmt.Errorf("labormarket: expire job %s: %w", jobID, err)
	}
	return nil
}

func (c *MTurkClient) ApproveAssignment(ctx context.Context, assignmentRef string) error {
	_, err := c.api.ApproveAssignment(ctx, &mturk.ApproveAssignmentInput{
		AssignmentId: aws.String(assignmentRef),
	})
	if err != nil {
		return fmt.Errorf("labormarket: approve assignment %s: %w", assignmentRef, err)
	}
	return nil
}

func (c *MTurkClient) GrantBonus(ctx context.Context, assignmentRef string, amount float64, reason string) error {
	out, err := c.api.GetAssignment(ctx, &mturk.GetAssignmentInput{
		AssignmentId: aws.String(assignmentRef),
	})
	if err != nil {
		return fmt.Errorf("labormarket: look up assignment %s: %w", assignmentRef, err)
	}
	if out.Assignment == nil || out.Assignment.WorkerId == nil {
		return fmt.Errorf("labormarket: assignment %s has no worker", assignmentRef)
	}
	_, err = c.api.SendBonus(ctx, &mturk.SendBonusInput{
		AssignmentId: aws.String(assignmentRef),
		WorkerId:     out.Assignment.WorkerId,
		BonusAmount:  aws.String(fmt.Sprintf("%.2f", amount)),
		Reason:       aws.String(reason),
	})
	if err != nil {
		return fmt.Errorf("labormarket: grant bonus on %s: %w", assignmentRef, err)
	}
	return nil
}

func (c *MTurkClient) AssignmentStatus(ctx context.Context, assignmentRef string) (AssignmentStatus, error) {
	out, err := c.api.GetAssignment(ctx, &mturk.GetAssignmentInput{
		AssignmentId: aws.String(assignmentRef),
	})
	if err != nil {
		return StatusUnknown, fmt.Errorf("labormarket: assignment status %s: %w", assignmentRef, err)
	}
	if out.Assignment == nil {
		return StatusUnknown, nil
	}
	switch out.Assignment.AssignmentStatus {
	case mturktypes.AssignmentStatusSubmitted:
		return StatusSubmitted, nil
	case mturktypes.AssignmentStatusApproved:
		return StatusApproved, nil
	case mturktypes.AssignmentStatusRejected:
		return StatusRejected, nil
	default:
		return StatusUnknown, nil
	}
}
