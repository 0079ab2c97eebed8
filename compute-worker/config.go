package main

import (
	"flag"
	"time"

	"github.com/dinaAbdelrahman/tabular-pipeline/common"
)

// ConsumerConfig holds the configuration variables of the pipeline worker
type ConsumerConfig struct {
	// NSQ consumer configuration
	NsqlookupdURLs       common.MultiStringFlag
	Channel              string
	QueuePollingInterval time.Duration
	TrainParallelism     int
	TransformParallelism int

	// Managed platform configuration
	AWSRegion    string
	AWSBucket    string
	RoleARN      string
	PollInterval time.Duration
	JobTimeout   time.Duration

	// Local mode: training jobs run on the local Docker daemon instead of the managed platform
	LocalMode bool

	// Experiment API
	ExperimentHost     string
	ExperimentPort     int
	ExperimentUser     string
	ExperimentPassword string

	// Local blob store fallback
	DataDir string
}

// NewConsumerConfig computes the configuration object parsing CLI flags
func NewConsumerConfig() *ConsumerConfig {
	var (
		nsqlookupdURLs       common.MultiStringFlag
		channel              string
		queuePollingInterval time.Duration
		trainParallelism     int
		transformParallelism int

		awsRegion    string
		awsBucket    string
		roleARN      string
		pollInterval time.Duration
		jobTimeout   time.Duration

		localMode bool

		experimentHost     string
		experimentPort     int
		experimentUser     string
		experimentPassword string

		dataDir string
	)

	// CLI Flags
	flag.Var(&nsqlookupdURLs, "nsqlookupd-urls", "URL(s) of NSQLookupd instances to connect to")
	flag.StringVar(&channel, "channel", "compute", "The NSQ channel to use (default: compute)")
	flag.DurationVar(&queuePollingInterval, "lookup-interval", 5*time.Second, "The interval at which nsqlookupd will be polled")
	flag.IntVar(&trainParallelism, "train-parallelism", 1, "Number of training tasks that this worker can execute in parallel")
	flag.IntVar(&transformParallelism, "transform-parallelism", 1, "Number of transform tasks that this worker can execute in parallel")

	flag.StringVar(&awsRegion, "aws-region", "", "The AWS region the managed platform runs in (leave blank to use the platform Mocks)")
	flag.StringVar(&awsBucket, "aws-bucket", "", "The AWS bucket holding datasets and artifacts (leave blank to store on disk)")
	flag.StringVar(&roleARN, "role-arn", "", "The execution role the platform's jobs assume")
	flag.DurationVar(&pollInterval, "poll-interval", 30*time.Second, "The interval at which platform jobs are polled (default: 30s)")
	flag.DurationVar(&jobTimeout, "job-timeout", 2*time.Hour, "After this delay, platform jobs are timed out (default: 2h)")

	flag.BoolVar(&localMode, "local-mode", false, "Run training jobs on the local Docker daemon instead of the managed platform")

	flag.StringVar(&experimentHost, "experiment-host", "", "Hostname of the experiment API to send run updates to (leave blank to use the Experiment API Mock)")
	flag.IntVar(&experimentPort, "experiment-port", 80, "TCP port to contact the experiment API on (default: 80)")
	flag.StringVar(&experimentUser, "experiment-user", "u", "The username for the experiment API Basic Authentification")
	flag.StringVar(&experimentPassword, "experiment-password", "p", "The password for the experiment API Basic Authentification")

	flag.StringVar(&dataDir, "data-dir", "/data", "The directory blobs are stored under when using the local blob store")

	flag.Parse()

	if len(nsqlookupdURLs) == 0 {
		nsqlookupdURLs = append(nsqlookupdURLs, "nsqlookupd:4161")
	}

	return &ConsumerConfig{
		NsqlookupdURLs:       nsqlookupdURLs,
		Channel:              channel,
		QueuePollingInterval: queuePollingInterval,
		TrainParallelism:     trainParallelism,
		TransformParallelism: transformParallelism,

		AWSRegion:    awsRegion,
		AWSBucket:    awsBucket,
		RoleARN:      roleARN,
		PollInterval: pollInterval,
		JobTimeout:   jobTimeout,

		LocalMode: localMode,

		ExperimentHost:     experimentHost,
		ExperimentPort:     experimentPort,
		ExperimentUser:     experimentUser,
		ExperimentPassword: experimentPassword,

		DataDir: dataDir,
	}
}
