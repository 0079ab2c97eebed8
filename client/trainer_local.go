package client

import (
	"archive/tar"
	"bytes"
	"compress/gzip"
	"encoding/json"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/aws/aws-sdk-go/service/sagemaker"

	"github.com/dinaAbdelrahman/tabular-pipeline/common"
)

// LocalTrainer implements the Trainer interface by running the training image on the local
// container runtime instead of the managed platform ("local mode"). The dataset is pulled from
// the blob store into the /opt/ml layout the training containers expect, and the resulting model
// directory is packaged as a tar.gz artifact and pushed back to the blob store.
type LocalTrainer struct {
	Trainer

	runtime common.ContainerRuntime
	store   common.BlobStore
	dataDir string

	lock sync.Mutex
	jobs map[string]*localTrainingJob
}

type localTrainingJob struct {
	status        string
	artifactKey   string
	failureReason string
}

// NewLocalTrainer creates a LocalTrainer working under the given scratch directory
func NewLocalTrainer(runtime common.ContainerRuntime, store common.BlobStore, dataDir string) *LocalTrainer {
	return &LocalTrainer{
		runtime: runtime,
		store:   store,
		dataDir: dataDir,
		jobs:    map[string]*localTrainingJob{},
	}
}

// CreateTrainingJob runs the training container synchronously and records the outcome. The job
// name it returns can be described and waited on like a managed one.
func (t *LocalTrainer) CreateTrainingJob(req *common.TrainRequest) (jobName string, err error) {
	if err = req.Check(); err != nil {
		return "", fmt.Errorf("[local-trainer] Invalid train request: %s", err)
	}

	jobName = fmt.Sprintf("tabular-train-%s", req.ID)
	t.recordJob(jobName, sagemaker.TrainingJobStatusInProgress, "", "")

	artifactKey, err := t.runTrainingJob(jobName, req)
	if err != nil {
		t.recordJob(jobName, sagemaker.TrainingJobStatusFailed, "", err.Error())
		return jobName, fmt.Errorf("[local-trainer] Error running training job %s: %s", jobName, err)
	}

	t.recordJob(jobName, sagemaker.TrainingJobStatusCompleted, artifactKey, "")
	log.Printf("[INFO][local-trainer] Training job %s completed, artifact stored under %s", jobName, artifactKey)
	return jobName, nil
}

func (t *LocalTrainer) runTrainingJob(jobName string, req *common.TrainRequest) (artifactKey string, err error) {
	// The /opt/ml layout the training containers expect
	jobDir := filepath.Join(t.dataDir, jobName)
	trainingDir := filepath.Join(jobDir, "input", "data", "training")
	configDir := filepath.Join(jobDir, "input", "config")
	modelDir := filepath.Join(jobDir, "model")
	for _, dir := range []string{trainingDir, configDir, modelDir} {
		if err = os.MkdirAll(dir, 0755); err != nil {
			return "", fmt.Errorf("Error creating job folder %s: %s", dir, err)
		}
	}

	// Let's make sure the scratch space is wiped out once the job is done/failed
	defer os.RemoveAll(jobDir)

	// Pulling the training dataset from the blob store
	dataset, err := t.store.Get(req.DatasetKey)
	if err != nil {
		return "", fmt.Errorf("Error pulling dataset %s from storage: %s", req.DatasetKey, err)
	}
	datasetPath := filepath.Join(trainingDir, "train.csv")
	datasetFile, err := os.Create(datasetPath)
	if err != nil {
		dataset.Close()
		return "", fmt.Errorf("Error creating file %s: %s", datasetPath, err)
	}
	n, err := io.Copy(datasetFile, dataset)
	datasetFile.Close()
	dataset.Close()
	if err != nil {
		return "", fmt.Errorf("Error copying dataset file %s (%d bytes written): %s", datasetPath, n, err)
	}

	// The training script reads its hyperparameters from the input config
	hyperparameters := map[string]string{"label": req.TargetColumn}
	for name, value := range req.Hyperparameters {
		hyperparameters[name] = value
	}
	hyperparametersJSON, err := json.Marshal(hyperparameters)
	if err != nil {
		return "", fmt.Errorf("Error JSON-marshaling hyperparameters: %s", err)
	}
	hyperparametersPath := filepath.Join(configDir, "hyperparameters.json")
	if err = ioutil.WriteFile(hyperparametersPath, hyperparametersJSON, 0644); err != nil {
		return "", fmt.Errorf("Error writing hyperparameters file %s: %s", hyperparametersPath, err)
	}

	if err = t.runtime.ImagePull(req.TrainingImage); err != nil {
		return "", fmt.Errorf("Error pulling training image %s: %s", req.TrainingImage, err)
	}

	_, err = t.runtime.RunImageInContainer(
		req.TrainingImage,
		[]string{"train"},
		nil,
		map[string]string{jobDir: "/opt/ml"},
		true,
	)
	if err != nil {
		return "", fmt.Errorf("Error running training container: %s", err)
	}

	// Package the model directory the way the managed platform does
	artifact, err := tarGzDirectory(modelDir)
	if err != nil {
		return "", fmt.Errorf("Error packaging model directory %s: %s", modelDir, err)
	}

	artifactKey = fmt.Sprintf("%s/%s/output/model.tar.gz", req.OutputPrefix, jobName)
	err = t.store.Put(artifactKey, bytes.NewReader(artifact), int64(len(artifact)))
	if err != nil {
		return "", fmt.Errorf("Error streaming model artifact %s to storage: %s", artifactKey, err)
	}
	return artifactKey, nil
}

func (t *LocalTrainer) recordJob(jobName, status, artifactKey, failureReason string) {
	t.lock.Lock()
	defer t.lock.Unlock()
	t.jobs[jobName] = &localTrainingJob{
		status:        status,
		artifactKey:   artifactKey,
		failureReason: failureReason,
	}
}

// DescribeTrainingJob reports the recorded outcome of a local training job
func (t *LocalTrainer) DescribeTrainingJob(jobName string) (status, artifactURL, failureReason string, err error) {
	t.lock.Lock()
	defer t.lock.Unlock()
	job, ok := t.jobs[jobName]
	if !ok {
		return "", "", "", fmt.Errorf("[local-trainer] Unknown training job %s", jobName)
	}
	return job.status, job.artifactKey, job.failureReason, nil
}

// WaitForTrainingJob returns the recorded artifact key: local jobs run synchronously, so by the
// time a caller waits the outcome is already known
func (t *LocalTrainer) WaitForTrainingJob(jobName string, pollInterval, timeout time.Duration) (artifactURL string, err error) {
	status, artifactURL, failureReason, err := t.DescribeTrainingJob(jobName)
	if err != nil {
		return "", err
	}
	if status == sagemaker.TrainingJobStatusFailed {
		return "", fmt.Errorf("[local-trainer] Training job %s failed: %s", jobName, failureReason)
	}
	return artifactURL, nil
}

// tarGzDirectory packages the content of a directory into a tar.gz archive, paths relative to
// the directory root
func tarGzDirectory(dir string) ([]byte, error) {
	var buf bytes.Buffer
	gzWriter := gzip.NewWriter(&buf)
	tarWriter := tar.NewWriter(gzWriter)

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}
		if info.IsDir() {
			return nil
		}

		relPath, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}

		header, err := tar.FileInfoHeader(info, "")
		if err != nil {
			return err
		}
		header.Name = filepath.ToSlash(relPath)
		if err = tarWriter.WriteHeader(header); err != nil {
			return err
		}

		file, err := os.Open(path)
		if err != nil {
			return err
		}
		defer file.Close()
		_, err = io.Copy(tarWriter, file)
		return err
	})
	if err != nil {
		return nil, err
	}

	if err = tarWriter.Close(); err != nil {
		return nil, err
	}
	if err = gzWriter.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
