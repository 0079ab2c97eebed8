package client

import (
	"bufio"
	"fmt"
	"log"
	"sort"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sagemaker"

	"github.com/dinaAbdelrahman/tabular-pipeline/common"
)

// Transformer describes the managed platform's batch transform API: apply a registered model to
// a bulk input file and collect the bulk predictions, without a persistent endpoint.
type Transformer interface {
	CreateTransformJob(req *common.TransformRequest) (jobName string, err error)
	WaitForTransformJob(jobName string, pollInterval, timeout time.Duration) error
	FetchTransformOutput(outputPrefix string, store common.BlobStore) (predictions []string, err error)
}

// SageMakerTransformer is a wrapper around the SageMaker batch transform API
type SageMakerTransformer struct {
	Transformer

	Bucket string

	sagemaker *sagemaker.SageMaker
}

// NewSageMakerTransformer binds a transformer to a region and the bucket holding inputs and outputs
func NewSageMakerTransformer(region, bucket string) *SageMakerTransformer {
	sess := session.New(aws.NewConfig().WithRegion(region))
	return &SageMakerTransformer{
		Bucket:    bucket,
		sagemaker: sagemaker.New(sess),
	}
}

func (t *SageMakerTransformer) s3URL(key string) string {
	return fmt.Sprintf("s3://%s/%s", t.Bucket, key)
}

// CreateTransformJob submits a batch transform job for the given request and returns its job name
func (t *SageMakerTransformer) CreateTransformJob(req *common.TransformRequest) (jobName string, err error) {
	if err = req.Check(); err != nil {
		return "", fmt.Errorf("[transformer-api] Invalid transform request: %s", err)
	}

	jobName = fmt.Sprintf("tabular-transform-%s", req.ID)

	_, err = t.sagemaker.CreateTransformJob(&sagemaker.CreateTransformJobInput{
		TransformJobName: aws.String(jobName),
		ModelName:        aws.String(req.ModelName),
		BatchStrategy:    aws.String(sagemaker.BatchStrategyMultiRecord),
		TransformInput: &sagemaker.TransformInput{
			ContentType: aws.String("text/csv"),
			SplitType:   aws.String(sagemaker.SplitTypeLine),
			DataSource: &sagemaker.TransformDataSource{
				S3DataSource: &sagemaker.TransformS3DataSource{
					S3DataType: aws.String(sagemaker.S3DataTypeS3prefix),
					S3Uri:      aws.String(t.s3URL(req.InputKey)),
				},
			},
		},
		TransformOutput: &sagemaker.TransformOutput{
			S3OutputPath: aws.String(t.s3URL(req.OutputPrefix)),
			AssembleWith: aws.String(sagemaker.AssemblyTypeLine),
		},
		TransformResources: &sagemaker.TransformResources{
			InstanceType:  aws.String(req.InstanceType),
			InstanceCount: aws.Int64(int64(req.InstanceCount)),
		},
	})
	if err != nil {
		return "", fmt.Errorf("[transformer-api] Error creating transform job %s: %s", jobName, err)
	}

	log.Printf("[INFO][transformer-api] Transform job %s submitted", jobName)
	return jobName, nil
}

// WaitForTransformJob polls a transform job until it completes, fails or times out
func (t *SageMakerTransformer) WaitForTransformJob(jobName string, pollInterval, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		out, err := t.sagemaker.DescribeTransformJob(&sagemaker.DescribeTransformJobInput{
			TransformJobName: aws.String(jobName),
		})
		if err != nil {
			return fmt.Errorf("[transformer-api] Error describing transform job %s: %s", jobName, err)
		}

		switch status := aws.StringValue(out.TransformJobStatus); status {
		case sagemaker.TransformJobStatusCompleted:
			log.Printf("[INFO][transformer-api] Transform job %s completed", jobName)
			return nil
		case sagemaker.TransformJobStatusFailed:
			return fmt.Errorf("[transformer-api] Transform job %s failed: %s", jobName, aws.StringValue(out.FailureReason))
		case sagemaker.TransformJobStatusStopped:
			return fmt.Errorf("[transformer-api] Transform job %s was stopped", jobName)
		default:
			if time.Now().After(deadline) {
				return fmt.Errorf("[transformer-api] Timed out waiting for transform job %s (last status: %s)", jobName, status)
			}
			log.Printf("[INFO][transformer-api] Transform job %s in status %s, polling again in %s", jobName, status, pollInterval)
			time.Sleep(pollInterval)
		}
	}
}

// FetchTransformOutput downloads every output file written under the job's output prefix and
// concatenates their prediction lines, one label per input row
func (t *SageMakerTransformer) FetchTransformOutput(outputPrefix string, store common.BlobStore) (predictions []string, err error) {
	return fetchPredictionLines(outputPrefix, store)
}

func fetchPredictionLines(outputPrefix string, store common.BlobStore) (predictions []string, err error) {
	keys, err := store.List(outputPrefix)
	if err != nil {
		return nil, fmt.Errorf("[transformer-api] Error listing transform output under %s: %s", outputPrefix, err)
	}
	if len(keys) == 0 {
		return nil, fmt.Errorf("[transformer-api] No transform output found under %s", outputPrefix)
	}

	// One output file per input file, assembled line by line
	sort.Strings(keys)
	for _, key := range keys {
		blob, err := store.Get(key)
		if err != nil {
			return nil, fmt.Errorf("[transformer-api] Error retrieving transform output %s: %s", key, err)
		}

		scanner := bufio.NewScanner(blob)
		for scanner.Scan() {
			line := strings.TrimSpace(scanner.Text())
			if line != "" {
				predictions = append(predictions, line)
			}
		}
		err = scanner.Err()
		blob.Close()
		if err != nil {
			return nil, fmt.Errorf("[transformer-api] Error reading transform output %s: %s", key, err)
		}
	}
	return predictions, nil
}

// TransformerMock is a mock of the batch transform API (for tests & local dev. purposes). It
// "transforms" the input by writing one majority-class label per input line to the output prefix.
type TransformerMock struct {
	Transformer

	Store common.BlobStore
	Label string

	evilTransformUUID string
}

// NewTransformerMock instantiates our mock of the batch transform API
func NewTransformerMock(store common.BlobStore, label string) *TransformerMock {
	return &TransformerMock{
		Store:             store,
		Label:             label,
		evilTransformUUID: "610e134a-ff45-4416-aaac-1b3398e4bba6",
	}
}

// CreateTransformJob counts the input lines and writes that many labels to the output prefix
func (t *TransformerMock) CreateTransformJob(req *common.TransformRequest) (jobName string, err error) {
	if err = req.Check(); err != nil {
		return "", fmt.Errorf("[transformer-api] Invalid transform request: %s", err)
	}
	if req.ID.String() == t.evilTransformUUID {
		return "", fmt.Errorf("[transformer-api] Error creating transform job for request %s", req.ID)
	}

	input, err := t.Store.Get(req.InputKey)
	if err != nil {
		return "", fmt.Errorf("[transformer-api] Error retrieving transform input %s: %s", req.InputKey, err)
	}
	defer input.Close()

	var out strings.Builder
	scanner := bufio.NewScanner(input)
	for scanner.Scan() {
		if strings.TrimSpace(scanner.Text()) != "" {
			out.WriteString(t.Label)
			out.WriteString("\n")
		}
	}
	if err = scanner.Err(); err != nil {
		return "", fmt.Errorf("[transformer-api] Error reading transform input %s: %s", req.InputKey, err)
	}

	outputKey := fmt.Sprintf("%s/%s.out", req.OutputPrefix, req.ID)
	content := out.String()
	err = t.Store.Put(outputKey, strings.NewReader(content), int64(len(content)))
	if err != nil {
		return "", fmt.Errorf("[transformer-api] Error writing transform output %s: %s", outputKey, err)
	}

	return fmt.Sprintf("tabular-transform-%s", req.ID), nil
}

// WaitForTransformJob returns immediately: mocked transform jobs run synchronously
func (t *TransformerMock) WaitForTransformJob(jobName string, pollInterval, timeout time.Duration) error {
	return nil
}

// FetchTransformOutput reads back whatever the mocked job wrote
func (t *TransformerMock) FetchTransformOutput(outputPrefix string, store common.BlobStore) (predictions []string, err error) {
	return fetchPredictionLines(outputPrefix, store)
}
