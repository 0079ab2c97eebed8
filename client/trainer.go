package client

import (
	"fmt"
	"log"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sagemaker"

	"github.com/dinaAbdelrahman/tabular-pipeline/common"
)

// Trainer describes the managed platform's training job API: submit a job referencing a container
// image and a dataset, poll it, wait for the model artifact.
type Trainer interface {
	CreateTrainingJob(req *common.TrainRequest) (jobName string, err error)
	DescribeTrainingJob(jobName string) (status, artifactURL, failureReason string, err error)
	WaitForTrainingJob(jobName string, pollInterval, timeout time.Duration) (artifactURL string, err error)
}

// SageMakerTrainer is a wrapper around the SageMaker training job API
type SageMakerTrainer struct {
	Trainer

	Bucket string

	sagemaker *sagemaker.SageMaker
}

// NewSageMakerTrainer binds a trainer to a region and the bucket holding datasets and artifacts
func NewSageMakerTrainer(region, bucket string) *SageMakerTrainer {
	sess := session.New(aws.NewConfig().WithRegion(region))
	return &SageMakerTrainer{
		Bucket:    bucket,
		sagemaker: sagemaker.New(sess),
	}
}

func (t *SageMakerTrainer) s3URL(key string) string {
	return fmt.Sprintf("s3://%s/%s", t.Bucket, key)
}

// CreateTrainingJob submits a training job for the given request and returns its job name
func (t *SageMakerTrainer) CreateTrainingJob(req *common.TrainRequest) (jobName string, err error) {
	if err = req.Check(); err != nil {
		return "", fmt.Errorf("[trainer-api] Invalid train request: %s", err)
	}

	jobName = fmt.Sprintf("tabular-train-%s", req.ID)

	hyperparameters := map[string]*string{}
	for name, value := range req.Hyperparameters {
		hyperparameters[name] = aws.String(value)
	}
	// The training script reads the target column name from its hyperparameters
	hyperparameters["label"] = aws.String(req.TargetColumn)

	_, err = t.sagemaker.CreateTrainingJob(&sagemaker.CreateTrainingJobInput{
		TrainingJobName: aws.String(jobName),
		RoleArn:         aws.String(req.RoleARN),
		AlgorithmSpecification: &sagemaker.AlgorithmSpecification{
			TrainingImage:     aws.String(req.TrainingImage),
			TrainingInputMode: aws.String(sagemaker.TrainingInputModeFile),
		},
		InputDataConfig: []*sagemaker.Channel{
			{
				ChannelName: aws.String("training"),
				ContentType: aws.String("text/csv"),
				DataSource: &sagemaker.DataSource{
					S3DataSource: &sagemaker.S3DataSource{
						S3DataType:             aws.String(sagemaker.S3DataTypeS3prefix),
						S3Uri:                  aws.String(t.s3URL(req.DatasetKey)),
						S3DataDistributionType: aws.String(sagemaker.S3DataDistributionFullyReplicated),
					},
				},
			},
		},
		OutputDataConfig: &sagemaker.OutputDataConfig{
			S3OutputPath: aws.String(t.s3URL(req.OutputPrefix)),
		},
		ResourceConfig: &sagemaker.ResourceConfig{
			InstanceType:   aws.String(req.InstanceType),
			InstanceCount:  aws.Int64(int64(req.InstanceCount)),
			VolumeSizeInGB: aws.Int64(30),
		},
		StoppingCondition: &sagemaker.StoppingCondition{
			MaxRuntimeInSeconds: aws.Int64(86400),
		},
		HyperParameters: hyperparameters,
	})
	if err != nil {
		return "", fmt.Errorf("[trainer-api] Error creating training job %s: %s", jobName, err)
	}

	log.Printf("[INFO][trainer-api] Training job %s submitted", jobName)
	return jobName, nil
}

// DescribeTrainingJob returns the status of a training job, plus the model artifact URL and the
// failure reason when relevant
func (t *SageMakerTrainer) DescribeTrainingJob(jobName string) (status, artifactURL, failureReason string, err error) {
	out, err := t.sagemaker.DescribeTrainingJob(&sagemaker.DescribeTrainingJobInput{
		TrainingJobName: aws.String(jobName),
	})
	if err != nil {
		return "", "", "", fmt.Errorf("[trainer-api] Error describing training job %s: %s", jobName, err)
	}

	status = aws.StringValue(out.TrainingJobStatus)
	if out.ModelArtifacts != nil {
		artifactURL = aws.StringValue(out.ModelArtifacts.S3ModelArtifacts)
	}
	failureReason = aws.StringValue(out.FailureReason)
	return status, artifactURL, failureReason, nil
}

// WaitForTrainingJob polls a training job until it completes, fails or times out
func (t *SageMakerTrainer) WaitForTrainingJob(jobName string, pollInterval, timeout time.Duration) (artifactURL string, err error) {
	deadline := time.Now().Add(timeout)
	for {
		status, artifactURL, failureReason, err := t.DescribeTrainingJob(jobName)
		if err != nil {
			return "", err
		}

		switch status {
		case sagemaker.TrainingJobStatusCompleted:
			log.Printf("[INFO][trainer-api] Training job %s completed", jobName)
			return artifactURL, nil
		case sagemaker.TrainingJobStatusFailed:
			return "", fmt.Errorf("[trainer-api] Training job %s failed: %s", jobName, failureReason)
		case sagemaker.TrainingJobStatusStopped:
			return "", fmt.Errorf("[trainer-api] Training job %s was stopped", jobName)
		}

		if time.Now().After(deadline) {
			return "", fmt.Errorf("[trainer-api] Timed out waiting for training job %s (last status: %s)", jobName, status)
		}
		log.Printf("[INFO][trainer-api] Training job %s in status %s, polling again in %s", jobName, status, pollInterval)
		time.Sleep(pollInterval)
	}
}

// TrainerMock is a mock of the training job API (for tests & local dev. purposes)
type TrainerMock struct {
	Trainer

	evilTrainUUID string
}

// NewTrainerMock instantiates our mock of the training job API
func NewTrainerMock() *TrainerMock {
	return &TrainerMock{
		evilTrainUUID: "58bc25d9-712d-4a53-8e73-2d6ca4d837c2",
	}
}

// CreateTrainingJob pretends a training job was submitted (the same, no matter the request)
func (t *TrainerMock) CreateTrainingJob(req *common.TrainRequest) (jobName string, err error) {
	if err = req.Check(); err != nil {
		return "", fmt.Errorf("[trainer-api] Invalid train request: %s", err)
	}
	if req.ID.String() == t.evilTrainUUID {
		return "", fmt.Errorf("[trainer-api] Error creating training job for request %s", req.ID)
	}
	return fmt.Sprintf("tabular-train-%s", req.ID), nil
}

// DescribeTrainingJob always finds a completed job with a fake artifact
func (t *TrainerMock) DescribeTrainingJob(jobName string) (status, artifactURL, failureReason string, err error) {
	return sagemaker.TrainingJobStatusCompleted, fmt.Sprintf("s3://fake/%s/output/model.tar.gz", jobName), "", nil
}

// WaitForTrainingJob returns immediately with the fake artifact URL
func (t *TrainerMock) WaitForTrainingJob(jobName string, pollInterval, timeout time.Duration) (artifactURL string, err error) {
	_, artifactURL, _, err = t.DescribeTrainingJob(jobName)
	return artifactURL, err
}
