/*
 * Copyright Tabular Pipeline Org. 2026
 *
 * contact@tabular-pipeline.io
 *
 * This software is part of the Tabular Pipeline project, an open-source
 * machine learning pipeline.
 *
 * This software is governed by the CeCILL license, compatible with the
 * GNU GPL, under French law and abiding by the rules of distribution of
 * free software. You can  use, modify and/ or redistribute the software
 * under the terms of the CeCILL license as circulated by CEA, CNRS and
 * INRIA at the following URL "http://www.cecill.info".
 *
 * As a counterpart to the access to the source code and  rights to copy,
 * modify and redistribute granted by the license, users are provided only
 * with a limited warranty  and the software's author,  the holder of the
 * economic rights,  and the successive licensors  have only  limited
 * liability.
 *
 * In this respect, the user's attention is drawn to the risks associated
 * with loading,  using,  modifying and/or developing or reproducing the
 * software by the user in light of its specific status of free software,
 * that may mean  that it is complicated to manipulate,  and  that  also
 * therefore means  that it is reserved for developers  and  experienced
 * professionals having in-depth computer knowledge. Users are therefore
 * encouraged to load and test the software's suitability as regards their
 * requirements in conditions enabling the security of their systems and/or
 * data to be ensured and,  more generally, to use and operate it in the
 * same conditions as regards security.
 *
 * The fact that you are presently reading this means that you have had
 * knowledge of the CeCILL license and that you accept its terms.
 */

package main

import (
	"flag"
	"strings"
	"time"

	"github.com/dinaAbdelrahman/tabular-pipeline/common"
)

// Pipeline steps the runner can execute
const (
	StepPrepare   = "prepare"
	StepTrain     = "train"
	StepPredict   = "predict"
	StepTransform = "transform"
	StepAll       = "all"
	StepEnqueue   = "enqueue"
)

// RunnerConfig holds the configuration variables of the pipeline runner
type RunnerConfig struct {
	Step string

	// Dataset configuration
	DatasetURL   string
	TargetColumn string
	TestFraction float64
	Seed         int64
	KeyPrefix    string

	// Managed platform configuration
	AWSRegion     string
	AWSBucket     string
	RoleARN       string
	TrainingImage string
	InstanceType  string
	InstanceCount int
	Hyperparams   common.MultiStringFlag
	PollInterval  time.Duration
	JobTimeout    time.Duration

	// Real-time prediction configuration
	PredictBatchSize int

	// Experiment API
	ExperimentHost     string
	ExperimentPort     int
	ExperimentUser     string
	ExperimentPassword string

	// NSQ producer (enqueue step only)
	NsqdHost string
	NsqdPort int

	// Local blob store fallback
	DataDir string
}

// NewRunnerConfig computes the configuration object parsing CLI flags
func NewRunnerConfig() *RunnerConfig {
	var (
		step string

		datasetURL   string
		targetColumn string
		testFraction float64
		seed         int64
		keyPrefix    string

		awsRegion     string
		awsBucket     string
		roleARN       string
		trainingImage string
		instanceType  string
		instanceCount int
		hyperparams   common.MultiStringFlag
		pollInterval  time.Duration
		jobTimeout    time.Duration

		predictBatchSize int

		experimentHost     string
		experimentPort     int
		experimentUser     string
		experimentPassword string

		nsqdHost string
		nsqdPort int

		dataDir string
	)

	// CLI Flags
	flag.StringVar(&step, "step", StepAll, "The pipeline step to run: prepare, train, predict, transform, enqueue or all (default: all)")

	flag.StringVar(&datasetURL, "dataset-url", common.DefaultDatasetURL, "URL of the CSV dataset to train on")
	flag.StringVar(&targetColumn, "target-column", common.DefaultTargetColumn, "Name of the column the model learns to predict")
	flag.Float64Var(&testFraction, "test-fraction", 0.3, "Fraction of the dataset held out for evaluation (default: 0.3)")
	flag.Int64Var(&seed, "seed", 42, "Seed of the train/test shuffle (default: 42)")
	flag.StringVar(&keyPrefix, "key-prefix", "census", "Blob store prefix datasets and outputs are stored under (default: census)")

	flag.StringVar(&awsRegion, "aws-region", "", "The AWS region the managed platform runs in (leave blank to use the platform Mocks)")
	flag.StringVar(&awsBucket, "aws-bucket", "", "The AWS bucket holding datasets and artifacts (leave blank to store on disk)")
	flag.StringVar(&roleARN, "role-arn", "", "The execution role the platform's jobs assume")
	flag.StringVar(&trainingImage, "training-image", "", "URI of the container image running the training script")
	flag.StringVar(&instanceType, "instance-type", "ml.m5.2xlarge", "Instance type platform jobs run on (default: ml.m5.2xlarge)")
	flag.IntVar(&instanceCount, "instance-count", 1, "Number of instances platform jobs run on (default: 1)")
	flag.Var(&hyperparams, "hyperparameter", "Training hyperparameter, as a key=value pair (can be repeated)")
	flag.DurationVar(&pollInterval, "poll-interval", 30*time.Second, "The interval at which platform jobs are polled (default: 30s)")
	flag.DurationVar(&jobTimeout, "job-timeout", 2*time.Hour, "After this delay, platform jobs are timed out (default: 2h)")

	flag.IntVar(&predictBatchSize, "predict-batch-size", 100, "Number of rows sent per endpoint invocation (default: 100)")

	flag.StringVar(&experimentHost, "experiment-host", "", "Hostname of the experiment API to register runs against (leave blank to use the Experiment API Mock)")
	flag.IntVar(&experimentPort, "experiment-port", 80, "TCP port to contact the experiment API on (default: 80)")
	flag.StringVar(&experimentUser, "experiment-user", "u", "The username for the experiment API Basic Authentification")
	flag.StringVar(&experimentPassword, "experiment-password", "p", "The password for the experiment API Basic Authentification")

	flag.StringVar(&nsqdHost, "nsqd-host", "nsqd", "Hostname of the NSQd instance queued requests are pushed to (enqueue step)")
	flag.IntVar(&nsqdPort, "nsqd-port", 4150, "TCP port of the NSQd instance (default: 4150)")

	flag.StringVar(&dataDir, "data-dir", "/data", "The directory blobs are stored under when using the local blob store")

	flag.Parse()

	return &RunnerConfig{
		Step: step,

		DatasetURL:   datasetURL,
		TargetColumn: targetColumn,
		TestFraction: testFraction,
		Seed:         seed,
		KeyPrefix:    keyPrefix,

		AWSRegion:     awsRegion,
		AWSBucket:     awsBucket,
		RoleARN:       roleARN,
		TrainingImage: trainingImage,
		InstanceType:  instanceType,
		InstanceCount: instanceCount,
		Hyperparams:   hyperparams,
		PollInterval:  pollInterval,
		JobTimeout:    jobTimeout,

		PredictBatchSize: predictBatchSize,

		ExperimentHost:     experimentHost,
		ExperimentPort:     experimentPort,
		ExperimentUser:     experimentUser,
		ExperimentPassword: experimentPassword,

		NsqdHost: nsqdHost,
		NsqdPort: nsqdPort,

		DataDir: dataDir,
	}
}

// Hyperparameters parses the repeated key=value -hyperparameter flags into a map
func (c *RunnerConfig) Hyperparameters() map[string]string {
	params := map[string]string{}
	for _, pair := range c.Hyperparams {
		parts := strings.SplitN(pair, "=", 2)
		if len(parts) == 2 && parts[0] != "" {
			params[parts[0]] = parts[1]
		}
	}
	return params
}
