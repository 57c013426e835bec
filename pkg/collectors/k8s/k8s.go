// Package k8s builds mini graph elements from Kubernetes objects. Services,
// deployments and pods are listed per namespace via client-go; services
// become service nodes, deployments become workload or app nodes, and a
// service is linked to every workload its selector matches.
package k8s

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/client-go/kubernetes"
	"k8s.io/client-go/tools/clientcmd"

	"gitlab.com/tinyland/lab/minigraph/pkg/graph"
)

// Default values for collector configuration.
const (
	defaultInterval = 15 * time.Second
)

// ErrNoNamespaces is returned when Collect is called without namespaces.
var ErrNoNamespaces = errors.New("k8s: no namespaces requested")

// ---------- Configuration ----------

// Config holds the configuration for the Kubernetes collector.
type Config struct {
	// Interval is the collection polling interval. Defaults to 15s.
	Interval time.Duration

	// Kubeconfig is the path to a kubeconfig file. If empty, the default
	// loading rules apply (KUBECONFIG env, ~/.kube/config, in-cluster).
	Kubeconfig string

	// Contexts lists the kubeconfig contexts to graph. Each context is
	// treated as one cluster named after it. If empty, only the current
	// context is used.
	Contexts []string

	// ClusterName labels nodes from the current context when Contexts is
	// empty.
	ClusterName string
}

// ---------- K8sClient interface ----------

// K8sClient abstracts Kubernetes API calls for testability.
type K8sClient interface {
	ListServices(ctx context.Context, namespace string) ([]corev1.Service, error)
	ListDeployments(ctx context.Context, namespace string) ([]appsv1.Deployment, error)
	ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error)
}

// realClient wraps a kubernetes.Clientset to implement K8sClient.
type realClient struct {
	cs *kubernetes.Clientset
}

func (r *realClient) ListServices(ctx context.Context, namespace string) ([]corev1.Service, error) {
	list, err := r.cs.CoreV1().Services(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (r *realClient) ListDeployments(ctx context.Context, namespace string) ([]appsv1.Deployment, error) {
	list, err := r.cs.AppsV1().Deployments(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

func (r *realClient) ListPods(ctx context.Context, namespace string) ([]corev1.Pod, error) {
	list, err := r.cs.CoreV1().Pods(namespace).List(ctx, metav1.ListOptions{})
	if err != nil {
		return nil, err
	}
	return list.Items, nil
}

// ---------- clientFactory ----------

// clientFactory creates K8sClient instances for a given kubeconfig context.
type clientFactory func(kubeconfig, context string) (K8sClient, error)

// defaultClientFactory builds a real K8sClient from a kubeconfig path and context.
func defaultClientFactory(kubeconfig, ctxName string) (K8sClient, error) {
	rules := clientcmd.NewDefaultClientConfigLoadingRules()
	if kubeconfig != "" {
		rules.ExplicitPath = kubeconfig
	}
	overrides := &clientcmd.ConfigOverrides{}
	if ctxName != "" {
		overrides.CurrentContext = ctxName
	}
	cfg, err := clientcmd.NewNonInteractiveDeferredLoadingClientConfig(rules, overrides).ClientConfig()
	if err != nil {
		return nil, fmt.Errorf("build client config: %w", err)
	}
	cs, err := kubernetes.NewForConfig(cfg)
	if err != nil {
		return nil, fmt.Errorf("create clientset: %w", err)
	}
	return &realClient{cs: cs}, nil
}

// ---------- Collector ----------

// Collector implements the pkg/collectors.Collector interface for Kubernetes.
type Collector struct {
	cfg     Config
	factory clientFactory

	mu      sync.RWMutex
	healthy bool
}

// New creates a Collector with the given configuration.
func New(cfg Config) *Collector {
	if cfg.Interval <= 0 {
		cfg.Interval = defaultInterval
	}
	return &Collector{
		cfg:     cfg,
		factory: defaultClientFactory,
		healthy: true,
	}
}

// newWithFactory creates a Collector with a custom client factory (for tests).
func newWithFactory(cfg Config, factory clientFactory) *Collector {
	c := New(cfg)
	c.factory = factory
	return c
}

// Name returns the collector identifier.
func (c *Collector) Name() string { return "k8s" }

// Interval returns the configured polling interval.
func (c *Collector) Interval() time.Duration { return c.cfg.Interval }

// Healthy returns true if the last collection succeeded.
func (c *Collector) Healthy() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.healthy
}

func (c *Collector) setHealthy(h bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.healthy = h
}

// cluster pairs a kubeconfig context with the cluster name put on nodes.
type cluster struct {
	context string
	name    string
}

func (c *Collector) clusters() []cluster {
	if len(c.cfg.Contexts) == 0 {
		return []cluster{{context: "", name: c.cfg.ClusterName}}
	}
	out := make([]cluster, 0, len(c.cfg.Contexts))
	for _, ctxName := range c.cfg.Contexts {
		out = append(out, cluster{context: ctxName, name: ctxName})
	}
	return out
}

// Collect lists every requested namespace in every configured cluster and
// builds the graph for params. Namespaces the caller may not read become
// inaccessible namespace boxes instead of failing the whole collection.
func (c *Collector) Collect(ctx context.Context, params graph.FetchParams) (*graph.Elements, error) {
	if len(params.Namespaces) == 0 {
		return nil, ErrNoNamespaces
	}

	clusters := c.clusters()
	snaps := make([][]namespaceSnapshot, len(clusters))

	g, gctx := errgroup.WithContext(ctx)
	for i, cl := range clusters {
		i, cl := i, cl
		g.Go(func() error {
			client, err := c.factory(c.cfg.Kubeconfig, cl.context)
			if err != nil {
				return fmt.Errorf("cluster %q: %w", cl.name, err)
			}
			s, err := collectCluster(gctx, client, cl.name, params.Namespaces)
			if err != nil {
				return fmt.Errorf("cluster %q: %w", cl.name, err)
			}
			snaps[i] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		c.setHealthy(false)
		return nil, err
	}
	c.setHealthy(true)

	var all []namespaceSnapshot
	for _, s := range snaps {
		all = append(all, s...)
	}
	return buildElements(all, params), nil
}

// namespaceSnapshot is everything listed for one namespace of one cluster.
type namespaceSnapshot struct {
	cluster      string
	namespace    string
	inaccessible bool
	services     []corev1.Service
	deployments  []appsv1.Deployment
	pods         []corev1.Pod
}

// collectCluster lists every namespace of one cluster concurrently.
func collectCluster(ctx context.Context, client K8sClient, clusterName string, namespaces []graph.Namespace) ([]namespaceSnapshot, error) {
	out := make([]namespaceSnapshot, len(namespaces))

	g, gctx := errgroup.WithContext(ctx)
	for i, ns := range namespaces {
		i, ns := i, ns
		g.Go(func() error {
			snap, err := collectNamespace(gctx, client, clusterName, ns.Name)
			if err != nil {
				return err
			}
			out[i] = snap
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

func collectNamespace(ctx context.Context, client K8sClient, clusterName, ns string) (namespaceSnapshot, error) {
	snap := namespaceSnapshot{cluster: clusterName, namespace: ns}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		svcs, err := client.ListServices(gctx, ns)
		if err != nil {
			return fmt.Errorf("list services in %s: %w", ns, err)
		}
		snap.services = svcs
		return nil
	})
	g.Go(func() error {
		deps, err := client.ListDeployments(gctx, ns)
		if err != nil {
			return fmt.Errorf("list deployments in %s: %w", ns, err)
		}
		snap.deployments = deps
		return nil
	})
	g.Go(func() error {
		pods, err := client.ListPods(gctx, ns)
		if err != nil {
			return fmt.Errorf("list pods in %s: %w", ns, err)
		}
		snap.pods = pods
		return nil
	})

	if err := g.Wait(); err != nil {
		if apierrors.IsForbidden(err) {
			return namespaceSnapshot{cluster: clusterName, namespace: ns, inaccessible: true}, nil
		}
		return namespaceSnapshot{}, err
	}
	return snap, nil
}

// ---------- Graph building ----------

const (
	labelAppName    = "app.kubernetes.io/name"
	labelApp        = "app"
	labelAppVersion = "app.kubernetes.io/version"
	labelVersion    = "version"
)

// appLabels returns the app and version labels of a pod template,
// preferring the recommended labels over the short ones.
func appLabels(l map[string]string) (app, version string) {
	app = l[labelAppName]
	if app == "" {
		app = l[labelApp]
	}
	version = l[labelAppVersion]
	if version == "" {
		version = l[labelVersion]
	}
	return app, version
}

func nodeID(parts ...string) string {
	return strings.Join(parts, "/")
}

// builder accumulates nodes and edges without duplicates.
type builder struct {
	nodes map[string]graph.NodeData
	edges map[string]graph.EdgeData
}

func newBuilder() *builder {
	return &builder{
		nodes: make(map[string]graph.NodeData),
		edges: make(map[string]graph.EdgeData),
	}
}

func (b *builder) addNode(n graph.NodeData) {
	if existing, ok := b.nodes[n.ID]; ok {
		// A node stays idle only if every contributor is idle.
		n.IsIdle = n.IsIdle && existing.IsIdle
	}
	b.nodes[n.ID] = n
}

func (b *builder) addEdge(source, target, protocol string) {
	id := source + " -> " + target
	b.edges[id] = graph.EdgeData{ID: id, Source: source, Target: target, Protocol: protocol}
}

func (b *builder) elements() *graph.Elements {
	e := &graph.Elements{
		Nodes: make([]graph.NodeData, 0, len(b.nodes)),
		Edges: make([]graph.EdgeData, 0, len(b.edges)),
	}
	for _, n := range b.nodes {
		e.Nodes = append(e.Nodes, n)
	}
	for _, ed := range b.edges {
		e.Edges = append(e.Edges, ed)
	}
	sort.Slice(e.Nodes, func(i, j int) bool { return e.Nodes[i].ID < e.Nodes[j].ID })
	sort.Slice(e.Edges, func(i, j int) bool { return e.Edges[i].ID < e.Edges[j].ID })
	return e
}

// buildElements turns namespace snapshots into graph elements shaped by the
// graph type, then applies idle-node hiding and focus trimming.
func buildElements(snaps []namespaceSnapshot, params graph.FetchParams) *graph.Elements {
	b := newBuilder()
	showServices := params.GraphType == graph.GraphTypeService || params.InjectServiceNodes

	for _, snap := range snaps {
		if snap.inaccessible {
			b.addNode(graph.NodeData{
				ID:             nodeID("ns", snap.cluster, snap.namespace),
				NodeType:       graph.NodeTypeBox,
				IsBox:          graph.BoxByNamespace,
				Cluster:        snap.cluster,
				Namespace:      snap.namespace,
				IsInaccessible: true,
			})
			continue
		}

		// workloadTarget maps a deployment to the node that represents it
		// for this graph type.
		workloadTarget := make(map[string]string, len(snap.deployments))
		for i := range snap.deployments {
			dep := &snap.deployments[i]
			id, ok := addWorkload(b, snap, dep, params.GraphType)
			if ok {
				workloadTarget[dep.Name] = id
			}
		}

		if !showServices {
			continue
		}
		for i := range snap.services {
			svc := &snap.services[i]
			svcID := nodeID("svc", snap.cluster, snap.namespace, svc.Name)
			b.addNode(graph.NodeData{
				ID:             svcID,
				NodeType:       graph.NodeTypeService,
				Cluster:        snap.cluster,
				Namespace:      snap.namespace,
				Service:        svc.Name,
				App:            svc.Labels[labelApp],
				IsServiceEntry: svc.Spec.Type == corev1.ServiceTypeExternalName,
			})
			if len(svc.Spec.Selector) == 0 {
				continue
			}
			sel := labelsSelector(svc.Spec.Selector)
			for j := range snap.deployments {
				dep := &snap.deployments[j]
				target, ok := workloadTarget[dep.Name]
				if !ok || !sel.Matches(templateLabels(dep)) {
					continue
				}
				b.addEdge(svcID, target, servicePortProtocol(svc))
			}
		}
	}

	e := b.elements()
	if !params.ShowIdleNodes {
		e = e.WithoutIdle()
	}
	return e.Focus(params.Node)
}

// addWorkload adds the node standing for dep and returns its id. The
// service graph has no workload-level nodes.
func addWorkload(b *builder, snap namespaceSnapshot, dep *appsv1.Deployment, gt graph.GraphType) (string, bool) {
	app, version := appLabels(templateLabels(dep))
	idle := !hasRunningPod(dep, snap.pods)

	switch gt {
	case graph.GraphTypeService:
		return "", false
	case graph.GraphTypeApp:
		if app == "" {
			break
		}
		id := nodeID("app", snap.cluster, snap.namespace, app)
		b.addNode(graph.NodeData{
			ID:        id,
			NodeType:  graph.NodeTypeApp,
			Cluster:   snap.cluster,
			Namespace: snap.namespace,
			App:       app,
			IsIdle:    idle,
		})
		return id, true
	case graph.GraphTypeVersionedApp:
		if app == "" {
			break
		}
		boxID := nodeID("box", snap.cluster, snap.namespace, app)
		b.addNode(graph.NodeData{
			ID:        boxID,
			NodeType:  graph.NodeTypeBox,
			IsBox:     graph.BoxByApp,
			Cluster:   snap.cluster,
			Namespace: snap.namespace,
			App:       app,
			IsIdle:    idle,
		})
		id := nodeID("app", snap.cluster, snap.namespace, app, dep.Name)
		b.addNode(graph.NodeData{
			ID:        id,
			Parent:    boxID,
			NodeType:  graph.NodeTypeApp,
			Cluster:   snap.cluster,
			Namespace: snap.namespace,
			App:       app,
			Version:   version,
			Workload:  dep.Name,
			IsIdle:    idle,
		})
		return id, true
	}

	id := nodeID("wk", snap.cluster, snap.namespace, dep.Name)
	b.addNode(graph.NodeData{
		ID:        id,
		NodeType:  graph.NodeTypeWorkload,
		Cluster:   snap.cluster,
		Namespace: snap.namespace,
		App:       app,
		Version:   version,
		Workload:  dep.Name,
		IsIdle:    idle,
	})
	return id, true
}
