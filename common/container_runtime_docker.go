package common

import (
	"context"
	"fmt"
	"io"
	"io/ioutil"
	"log"
	"time"

	dockerTypes "github.com/docker/docker/api/types"
	dockerContainer "github.com/docker/docker/api/types/container"
	dockerNetwork "github.com/docker/docker/api/types/network"
	dockerCli "github.com/docker/docker/client"
	uuid "github.com/satori/go.uuid"
)

// DockerRuntime implements our ContainerRuntime interface for Docker
type DockerRuntime struct {
	ContainerRuntime

	timeout time.Duration
	docker  *dockerCli.Client
}

// NewDockerRuntime binds to the Docker daemon described by the environment (DOCKER_HOST & friends)
func NewDockerRuntime(timeout time.Duration) (*DockerRuntime, error) {
	apiClient, err := dockerCli.NewClientWithOpts(dockerCli.FromEnv)
	if err != nil {
		return nil, fmt.Errorf("Error creating Docker client: %s", err)
	}

	return &DockerRuntime{
		timeout: timeout,

		docker: apiClient,
	}, nil
}

// ImagePull fetches an image (equivalent to the "docker pull" command). Training images are
// pulled from the platform's public registry, not built locally.
func (r *DockerRuntime) ImagePull(name string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	progress, err := r.docker.ImagePull(ctx, name, dockerTypes.ImagePullOptions{})
	if err != nil {
		return fmt.Errorf("[docker-runtime] Error pulling image %s: %s", name, err)
	}
	defer progress.Close()

	// The pull only completes once the progress stream has been drained
	_, err = io.Copy(ioutil.Discard, progress)
	if err != nil {
		return fmt.Errorf("[docker-runtime] Error reading pull progress for image %s: %s", name, err)
	}
	return nil
}

// ImageUnload removes an image from the Docker daemon (equivalent to the "docker rmi" command)
func (r *DockerRuntime) ImageUnload(imageID string) error {
	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	_, err := r.docker.ImageRemove(ctx, imageID, dockerTypes.ImageRemoveOptions{
		Force:         true,
		PruneChildren: false,
	})
	if err != nil {
		return fmt.Errorf("[docker-runtime] Error removing image %s: %s", imageID, err)
	}
	return nil
}

// RunImageInContainer launches a container on the bound docker host with as many restrictions as
// possible for our use case, and waits for the command to exit.
func (r *DockerRuntime) RunImageInContainer(imageName string, args []string, env []string, mounts map[string]string, autoRemove bool) (containerID string, err error) {
	containerName := uuid.NewV4().String()
	log.Printf("[INFO][docker-runtime] Running `%s` in container %s (image: %s)", args, containerName, imageName)

	ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
	defer cancel()

	binds := []string{}
	for hostPath, containerPath := range mounts {
		binds = append(binds, fmt.Sprintf("%s:%s", hostPath, containerPath))
	}

	// Let's create the container and run the command in it
	containerCreateBody, err := r.docker.ContainerCreate(
		ctx,
		&dockerContainer.Config{
			AttachStdin:  false,
			AttachStdout: true,
			AttachStderr: true,
			Tty:          false,
			OpenStdin:    false,
			Env:          env,
			Cmd:          args,
			Image:        imageName,
			WorkingDir:   "/opt/ml",
			// Training containers read their data and config from the /opt/ml mounts, the
			// network stays off
			NetworkDisabled: true,
			Labels:          map[string]string{},
		},
		&dockerContainer.HostConfig{
			AutoRemove: autoRemove,
			Privileged: false,
			Binds:      binds,
		},
		&dockerNetwork.NetworkingConfig{},
		nil,
		containerName,
	)
	if err != nil {
		return "", fmt.Errorf("Error creating Docker container %s: %s", containerName, err)
	}

	// Let's log any warning that was triggered
	for n, warning := range containerCreateBody.Warnings {
		log.Printf("[WARNING %d][docker-runtime] Warning creating container: %s", n, warning)
	}

	err = r.docker.ContainerStart(
		ctx,
		containerCreateBody.ID,
		dockerTypes.ContainerStartOptions{},
	)
	if err != nil {
		return "", fmt.Errorf("Error starting Docker container %s: %s", containerName, err)
	}

	// Let's wait for the command to be over
	statusCh, errCh := r.docker.ContainerWait(ctx, containerCreateBody.ID, dockerContainer.WaitConditionNotRunning)
	select {
	case err := <-errCh:
		if err != nil {
			return "", fmt.Errorf("Error waiting for container to exit: %s", err)
		}
	case status := <-statusCh:
		if status.StatusCode != 0 {
			return "", fmt.Errorf("Container %s exited with status code %d", containerName, status.StatusCode)
		}
		log.Printf("[INFO][docker-runtime] Container ran command, status code: %d", status.StatusCode)
	}

	return containerCreateBody.ID, nil
}
