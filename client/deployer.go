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

package client

import (
	"bufio"
	"bytes"
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/sagemaker"
	"github.com/aws/aws-sdk-go/service/sagemakerruntime"
)

// Deployer describes the managed platform's model hosting API: register a model artifact, stand
// up a real-time endpoint serving it, tear everything down afterwards.
type Deployer interface {
	CreateModel(modelName, image, artifactURL string) error
	CreateEndpoint(modelName, instanceType string, instanceCount int) (endpointName string, err error)
	WaitForEndpoint(endpointName string, pollInterval, timeout time.Duration) error
	TearDown(modelName, endpointName string) error
}

// Predictor issues synchronous CSV prediction requests against a live endpoint
type Predictor interface {
	Predict(endpointName string, payload []byte) (predictions []string, err error)
}

// SageMakerDeployer is a wrapper around the SageMaker hosting API
type SageMakerDeployer struct {
	Deployer

	RoleARN string

	sagemaker *sagemaker.SageMaker
}

// NewSageMakerDeployer binds a deployer to a region, using the given execution role for models
func NewSageMakerDeployer(region, roleARN string) *SageMakerDeployer {
	sess := session.New(aws.NewConfig().WithRegion(region))
	return &SageMakerDeployer{
		RoleARN:   roleARN,
		sagemaker: sagemaker.New(sess),
	}
}

// CreateModel registers a model artifact and its serving image under the given name
func (d *SageMakerDeployer) CreateModel(modelName, image, artifactURL string) error {
	_, err := d.sagemaker.CreateModel(&sagemaker.CreateModelInput{
		ModelName:        aws.String(modelName),
		ExecutionRoleArn: aws.String(d.RoleARN),
		PrimaryContainer: &sagemaker.ContainerDefinition{
			Image:        aws.String(image),
			ModelDataUrl: aws.String(artifactURL),
		},
	})
	if err != nil {
		return fmt.Errorf("[deployer-api] Error creating model %s: %s", modelName, err)
	}
	return nil
}

// CreateEndpoint stands up an endpoint config and an endpoint for a registered model. The config
// and endpoint names derive from the model name so that TearDown can find them back.
func (d *SageMakerDeployer) CreateEndpoint(modelName, instanceType string, instanceCount int) (endpointName string, err error) {
	configName := fmt.Sprintf("%s-config", modelName)
	endpointName = fmt.Sprintf("%s-endpoint", modelName)

	_, err = d.sagemaker.CreateEndpointConfig(&sagemaker.CreateEndpointConfigInput{
		EndpointConfigName: aws.String(configName),
		ProductionVariants: []*sagemaker.ProductionVariant{
			{
				VariantName:          aws.String("AllTraffic"),
				ModelName:            aws.String(modelName),
				InstanceType:         aws.String(instanceType),
				InitialInstanceCount: aws.Int64(int64(instanceCount)),
			},
		},
	})
	if err != nil {
		return "", fmt.Errorf("[deployer-api] Error creating endpoint config %s: %s", configName, err)
	}

	_, err = d.sagemaker.CreateEndpoint(&sagemaker.CreateEndpointInput{
		EndpointName:       aws.String(endpointName),
		EndpointConfigName: aws.String(configName),
	})
	if err != nil {
		return "", fmt.Errorf("[deployer-api] Error creating endpoint %s: %s", endpointName, err)
	}

	log.Printf("[INFO][deployer-api] Endpoint %s is being created", endpointName)
	return endpointName, nil
}

// WaitForEndpoint polls an endpoint until it is in service, failed or timed out
func (d *SageMakerDeployer) WaitForEndpoint(endpointName string, pollInterval, timeout time.Duration) error {
	deadline := time.Now().Add(timeout)
	for {
		out, err := d.sagemaker.DescribeEndpoint(&sagemaker.DescribeEndpointInput{
			EndpointName: aws.String(endpointName),
		})
		if err != nil {
			return fmt.Errorf("[deployer-api] Error describing endpoint %s: %s", endpointName, err)
		}

		switch status := aws.StringValue(out.EndpointStatus); status {
		case sagemaker.EndpointStatusInService:
			log.Printf("[INFO][deployer-api] Endpoint %s is in service", endpointName)
			return nil
		case sagemaker.EndpointStatusFailed:
			return fmt.Errorf("[deployer-api] Endpoint %s failed: %s", endpointName, aws.StringValue(out.FailureReason))
		default:
			if time.Now().After(deadline) {
				return fmt.Errorf("[deployer-api] Timed out waiting for endpoint %s (last status: %s)", endpointName, status)
			}
			log.Printf("[INFO][deployer-api] Endpoint %s in status %s, polling again in %s", endpointName, status, pollInterval)
			time.Sleep(pollInterval)
		}
	}
}

// TearDown deletes the endpoint, its config and the model, so that no billable resource outlives
// the pipeline run
func (d *SageMakerDeployer) TearDown(modelName, endpointName string) error {
	configName := fmt.Sprintf("%s-config", modelName)

	if _, err := d.sagemaker.DeleteEndpoint(&sagemaker.DeleteEndpointInput{
		EndpointName: aws.String(endpointName),
	}); err != nil {
		return fmt.Errorf("[deployer-api] Error deleting endpoint %s: %s", endpointName, err)
	}

	if _, err := d.sagemaker.DeleteEndpointConfig(&sagemaker.DeleteEndpointConfigInput{
		EndpointConfigName: aws.String(configName),
	}); err != nil {
		return fmt.Errorf("[deployer-api] Error deleting endpoint config %s: %s", configName, err)
	}

	if _, err := d.sagemaker.DeleteModel(&sagemaker.DeleteModelInput{
		ModelName: aws.String(modelName),
	}); err != nil {
		return fmt.Errorf("[deployer-api] Error deleting model %s: %s", modelName, err)
	}

	log.Printf("[INFO][deployer-api] Endpoint %s and model %s torn down", endpointName, modelName)
	return nil
}

// SageMakerPredictor is a wrapper around the SageMaker runtime API
type SageMakerPredictor struct {
	Predictor

	runtime *sagemakerruntime.SageMakerRuntime
}

// NewSageMakerPredictor binds a predictor to a region
func NewSageMakerPredictor(region string) *SageMakerPredictor {
	sess := session.New(aws.NewConfig().WithRegion(region))
	return &SageMakerPredictor{
		runtime: sagemakerruntime.New(sess),
	}
}

// Predict posts CSV feature rows (no header, no target column) to an endpoint and returns one
// predicted label per input row
func (p *SageMakerPredictor) Predict(endpointName string, payload []byte) (predictions []string, err error) {
	out, err := p.runtime.InvokeEndpoint(&sagemakerruntime.InvokeEndpointInput{
		EndpointName: aws.String(endpointName),
		ContentType:  aws.String("text/csv"),
		Accept:       aws.String("text/csv"),
		Body:         payload,
	})
	if err != nil {
		return nil, fmt.Errorf("[deployer-api] Error invoking endpoint %s: %s", endpointName, err)
	}

	return splitPredictionLines(out.Body), nil
}

func splitPredictionLines(body []byte) (predictions []string) {
	scanner := bufio.NewScanner(bytes.NewReader(body))
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line != "" {
			predictions = append(predictions, line)
		}
	}
	return predictions
}

// DeployerMock is a mock of the hosting API (for tests & local dev. purposes)
type DeployerMock struct {
	Deployer

	evilModelName string

	// Endpoints deployed through the mock, mapped to their model name
	Deployed map[string]string
}

// NewDeployerMock instantiates our mock of the hosting API
func NewDeployerMock() *DeployerMock {
	return &DeployerMock{
		evilModelName: "devil-model",
		Deployed:      map[string]string{},
	}
}

// CreateModel registers a model name... in a map
func (d *DeployerMock) CreateModel(modelName, image, artifactURL string) error {
	if modelName == d.evilModelName {
		return fmt.Errorf("[deployer-api] Error creating model %s", modelName)
	}
	return nil
}

// CreateEndpoint pretends an endpoint was stood up for the model
func (d *DeployerMock) CreateEndpoint(modelName, instanceType string, instanceCount int) (endpointName string, err error) {
	if modelName == d.evilModelName {
		return "", fmt.Errorf("[deployer-api] Error creating endpoint for model %s", modelName)
	}
	endpointName = fmt.Sprintf("%s-endpoint", modelName)
	d.Deployed[endpointName] = modelName
	return endpointName, nil
}

// WaitForEndpoint returns immediately: mocked endpoints are born in service
func (d *DeployerMock) WaitForEndpoint(endpointName string, pollInterval, timeout time.Duration) error {
	if _, ok := d.Deployed[endpointName]; !ok {
		return fmt.Errorf("[deployer-api] Unknown endpoint %s", endpointName)
	}
	return nil
}

// TearDown forgets the endpoint
func (d *DeployerMock) TearDown(modelName, endpointName string) error {
	delete(d.Deployed, endpointName)
	return nil
}

// PredictorMock is a mock of the runtime API that predicts the majority class for every row (a
// surprisingly honest baseline on the census dataset)
type PredictorMock struct {
	Predictor

	Label        string
	evilEndpoint string
}

// NewPredictorMock instantiates our mock of the runtime API
func NewPredictorMock(label string) *PredictorMock {
	return &PredictorMock{
		Label:        label,
		evilEndpoint: "devil-endpoint",
	}
}

// Predict returns the mock's label once per input row
func (p *PredictorMock) Predict(endpointName string, payload []byte) (predictions []string, err error) {
	if endpointName == p.evilEndpoint {
		return nil, fmt.Errorf("[deployer-api] Error invoking endpoint %s", endpointName)
	}

	for range splitPredictionLines(payload) {
		predictions = append(predictions, p.Label)
	}
	return predictions, nil
}
