package common

// ContainerRuntime abstracts Docker/rkt/... it can pull/unload images and run them. It is what
// local-mode training rides on when no managed platform is around.
type ContainerRuntime interface {
	// ImagePull fetches an image from its registry into the runtime's local store
	ImagePull(name string) error

	// ImageUnload removes an Image from the ContainerRuntime's image store (aka from disk)
	ImageUnload(name string) error

	// RunImageInContainer runs a given command in a network isolated container, with host
	// directories bind-mounted inside, and waits for it to exit
	RunImageInContainer(imageName string, args []string, env []string, mounts map[string]string, autoRemove bool) (containerID string, err error)
}
