package inventory

import (
	"context"
	"encoding/json"
	"os/exec"
	"time"

	"github.com/rileyhilliard/hop/internal/errors"
	"github.com/rileyhilliard/hop/internal/logger"
)

// DefaultFetchTimeout bounds a single region listing.
const DefaultFetchTimeout = 60 * time.Second

// CLIFetcher lists the fleet by shelling out to the AWS CLI.
// Each fetch is a read-only describe call; credentials, profiles, and retry
// behavior are the CLI's own concern and are not modified here.
type CLIFetcher struct {
	// Regions to list. When empty, regions are discovered first.
	Regions []string

	// Timeout bounds each CLI invocation. Zero means DefaultFetchTimeout.
	Timeout time.Duration

	log logger.Logger
}

// NewCLIFetcher creates a fetcher for the given regions.
func NewCLIFetcher(regions []string) *CLIFetcher {
	return &CLIFetcher{
		Regions: regions,
		log:     logger.NewEnvLogger("[fetch]"),
	}
}

// SetLogger overrides the fetcher's logger. Useful for tests.
func (f *CLIFetcher) SetLogger(l logger.Logger) {
	f.log = l
}

// Fetch lists instances across the configured regions.
// A region that fails to list is skipped with a warning; the fetch as a
// whole fails only when no region could be listed at all.
func (f *CLIFetcher) Fetch(ctx context.Context) ([]HostRecord, error) {
	regions := f.Regions
	if len(regions) == 0 {
		var err error
		regions, err = f.listRegions(ctx)
		if err != nil {
			return nil, err
		}
	}

	var hosts []HostRecord
	var lastErr error
	failed := 0
	for _, region := range regions {
		records, err := f.listRegion(ctx, region)
		if err != nil {
			f.log.Warn("listing region %s failed: %v", region, err)
			lastErr = err
			failed++
			continue
		}
		hosts = append(hosts, records...)
	}

	if failed == len(regions) && lastErr != nil {
		return nil, errors.WrapWithCode(lastErr, errors.ErrFetch,
			"Could not list any region",
			"Check 'aws sts get-caller-identity' works and your network is up")
	}

	f.log.Debug("fetched %d hosts from %d regions", len(hosts), len(regions)-failed)
	return hosts, nil
}

// describeRegionsOutput mirrors the subset of `aws ec2 describe-regions` we read.
type describeRegionsOutput struct {
	Regions []struct {
		RegionName string `json:"RegionName"`
	} `json:"Regions"`
}

// describeInstancesOutput mirrors the subset of `aws ec2 describe-instances` we read.
type describeInstancesOutput struct {
	Reservations []struct {
		Instances []struct {
			InstanceId       string `json:"InstanceId"`
			InstanceType     string `json:"InstanceType"`
			PublicIpAddress  string `json:"PublicIpAddress"`
			PrivateIpAddress string `json:"PrivateIpAddress"`
			KeyName          string `json:"KeyName"`
			State            struct {
				Name string `json:"Name"`
			} `json:"State"`
			Tags []struct {
				Key   string `json:"Key"`
				Value string `json:"Value"`
			} `json:"Tags"`
		} `json:"Instances"`
	} `json:"Reservations"`
}

func (f *CLIFetcher) listRegions(ctx context.Context) ([]string, error) {
	out, err := f.run(ctx, "ec2", "describe-regions", "--output", "json")
	if err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrFetch,
			"Could not discover regions",
			"Set 'regions:' in your config to skip discovery")
	}

	var parsed describeRegionsOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, errors.WrapWithCode(err, errors.ErrFetch,
			"Unexpected describe-regions output", "")
	}

	regions := make([]string, 0, len(parsed.Regions))
	for _, r := range parsed.Regions {
		regions = append(regions, r.RegionName)
	}
	return regions, nil
}

func (f *CLIFetcher) listRegion(ctx context.Context, region string) ([]HostRecord, error) {
	out, err := f.run(ctx, "ec2", "describe-instances", "--region", region, "--output", "json")
	if err != nil {
		return nil, err
	}

	var parsed describeInstancesOutput
	if err := json.Unmarshal(out, &parsed); err != nil {
		return nil, err
	}

	var hosts []HostRecord
	for _, res := range parsed.Reservations {
		for _, inst := range res.Instances {
			record := HostRecord{
				ID:          inst.InstanceId,
				Kind:        inst.InstanceType,
				State:       inst.State.Name,
				Region:      region,
				PublicAddr:  inst.PublicIpAddress,
				PrivateAddr: inst.PrivateIpAddress,
				KeyName:     inst.KeyName,
			}
			for _, tag := range inst.Tags {
				if tag.Key == "Name" {
					record.Name = tag.Value
					break
				}
			}
			hosts = append(hosts, record)
		}
	}
	return hosts, nil
}

// run executes the AWS CLI with a per-call timeout.
func (f *CLIFetcher) run(ctx context.Context, args ...string) ([]byte, error) {
	timeout := f.Timeout
	if timeout == 0 {
		timeout = DefaultFetchTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, "aws", args...)
	return cmd.Output()
}
