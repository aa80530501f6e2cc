// Package kubernetes acquires sandbox servers by creating agent-sandbox
// SandboxClaim resources. Each execution gets a fresh pod that is released
// by deleting the claim.
package kubernetes

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/runtime"
	"k8s.io/apimachinery/pkg/types"
	utilrand "k8s.io/apimachinery/pkg/util/rand"
	"k8s.io/apimachinery/pkg/util/wait"
	"sigs.k8s.io/controller-runtime/pkg/client"
	ctrlconfig "sigs.k8s.io/controller-runtime/pkg/client/config"

	sandboxv1alpha1 "sigs.k8s.io/agent-sandbox/api/v1alpha1"
	extensionsv1alpha1 "sigs.k8s.io/agent-sandbox/extensions/api/v1alpha1"

	"github.com/rhuss/askdata/pkg/sandbox"
)

var _ sandbox.Acquirer = (*ClaimAcquirer)(nil)

// Config configures a ClaimAcquirer.
type Config struct {
	Template     string
	Namespace    string        // default: "default"
	Port         int           // sandbox server port, default: 8080
	ReadyTimeout time.Duration // default: 60s
	PollInterval time.Duration // default: 500ms
}

// ClaimAcquirer creates one SandboxClaim per execution, waits for the
// Sandbox to report Ready and returns its service URL.
type ClaimAcquirer struct {
	client client.Client
	cfg    Config
	// newName is replaceable in tests.
	newName func() string
}

// NewClaimAcquirer creates a ClaimAcquirer using c.
func NewClaimAcquirer(c client.Client, cfg Config) *ClaimAcquirer {
	if cfg.Namespace == "" {
		cfg.Namespace = "default"
	}
	if cfg.Port == 0 {
		cfg.Port = 8080
	}
	if cfg.ReadyTimeout <= 0 {
		cfg.ReadyTimeout = 60 * time.Second
	}
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = 500 * time.Millisecond
	}
	return &ClaimAcquirer{
		client:  c,
		cfg:     cfg,
		newName: func() string { return "askdata-sandbox-" + utilrand.String(8) },
	}
}

// NewScheme returns a runtime.Scheme with the agent-sandbox types registered.
func NewScheme() (*runtime.Scheme, error) {
	scheme := runtime.NewScheme()
	if err := sandboxv1alpha1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("register sandbox types: %w", err)
	}
	if err := extensionsv1alpha1.AddToScheme(scheme); err != nil {
		return nil, fmt.Errorf("register extensions types: %w", err)
	}
	return scheme, nil
}

// NewClient builds a controller-runtime client from the in-cluster or
// kubeconfig credentials.
func NewClient() (client.Client, error) {
	scheme, err := NewScheme()
	if err != nil {
		return nil, err
	}
	restCfg, err := ctrlconfig.GetConfig()
	if err != nil {
		return nil, fmt.Errorf("loading kubernetes config: %w", err)
	}
	c, err := client.New(restCfg, client.Options{Scheme: scheme})
	if err != nil {
		return nil, fmt.Errorf("creating kubernetes client: %w", err)
	}
	return c, nil
}

// Acquire creates a SandboxClaim and waits until the Sandbox is ready. The
// claim is deleted when waiting fails or when release is called.
func (a *ClaimAcquirer) Acquire(ctx context.Context) (string, func(), error) {
	name := a.newName()
	claim := &extensionsv1alpha1.SandboxClaim{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: a.cfg.Namespace},
		Spec: extensionsv1alpha1.SandboxClaimSpec{
			TemplateRef: extensionsv1alpha1.SandboxTemplateRef{Name: a.cfg.Template},
		},
	}
	if err := a.client.Create(ctx, claim); err != nil {
		return "", nil, fmt.Errorf("create SandboxClaim %q: %w", name, err)
	}
	slog.Debug("created SandboxClaim", "name", name, "namespace", a.cfg.Namespace, "template", a.cfg.Template)

	release := func() { a.deleteClaim(name) }

	fqdn, err := a.waitForReady(ctx, name)
	if err != nil {
		release()
		return "", nil, err
	}
	url := fmt.Sprintf("http://%s:%d", fqdn, a.cfg.Port)
	slog.Debug("sandbox acquired", "name", name, "url", url)
	return url, release, nil
}

// waitForReady polls the Sandbox named like the claim until it is Ready and
// has a service FQDN.
func (a *ClaimAcquirer) waitForReady(ctx context.Context, name string) (string, error) {
	var fqdn string
	err := wait.PollUntilContextTimeout(ctx, a.cfg.PollInterval, a.cfg.ReadyTimeout, false, func(ctx context.Context) (bool, error) {
		sb := &sandboxv1alpha1.Sandbox{}
		if err := a.client.Get(ctx, types.NamespacedName{Name: name, Namespace: a.cfg.Namespace}, sb); err != nil {
			// The controller may not have created the Sandbox yet.
			return false, nil
		}
		if !isReady(sb) || sb.Status.ServiceFQDN == "" {
			return false, nil
		}
		fqdn = sb.Status.ServiceFQDN
		return true, nil
	})
	if err != nil {
		return "", fmt.Errorf("waiting for Sandbox %q (timeout %s): %w", name, a.cfg.ReadyTimeout, err)
	}
	return fqdn, nil
}

func isReady(sb *sandboxv1alpha1.Sandbox) bool {
	for _, c := range sb.Status.Conditions {
		if c.Type == string(sandboxv1alpha1.SandboxConditionReady) && c.Status == metav1.ConditionTrue {
			return true
		}
	}
	return false
}

// deleteClaim runs detached from the request context so cancelled
// requests still release their pod.
func (a *ClaimAcquirer) deleteClaim(name string) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	claim := &extensionsv1alpha1.SandboxClaim{
		ObjectMeta: metav1.ObjectMeta{Name: name, Namespace: a.cfg.Namespace},
	}
	if err := a.client.Delete(ctx, claim); err != nil {
		slog.Warn("failed to delete SandboxClaim", "name", name, "namespace", a.cfg.Namespace, "error", err)
		return
	}
	slog.Debug("deleted SandboxClaim", "name", name, "namespace", a.cfg.Namespace)
}
