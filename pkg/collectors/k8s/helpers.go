package k8s

import (
	"strings"

	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/labels"
)

// ---------- Selector helpers ----------

func labelsSelector(set map[string]string) labels.Selector {
	return labels.SelectorFromSet(labels.Set(set))
}

func templateLabels(dep *appsv1.Deployment) labels.Set {
	return labels.Set(dep.Spec.Template.Labels)
}

// ---------- Pod helpers ----------

// hasRunningPod reports whether any running pod belongs to dep. A
// deployment with no selector never owns pods.
func hasRunningPod(dep *appsv1.Deployment, pods []corev1.Pod) bool {
	if dep.Spec.Selector == nil {
		return false
	}
	sel, err := metav1.LabelSelectorAsSelector(dep.Spec.Selector)
	if err != nil || sel.Empty() {
		return false
	}
	for i := range pods {
		if pods[i].Status.Phase != corev1.PodRunning {
			continue
		}
		if sel.Matches(labels.Set(pods[i].Labels)) {
			return true
		}
	}
	return false
}

// ---------- Service helpers ----------

// servicePortProtocol names the protocol of a service's first port, using
// the port's appProtocol or its conventional name prefix before falling
// back to the transport protocol.
func servicePortProtocol(svc *corev1.Service) string {
	if len(svc.Spec.Ports) == 0 {
		return "tcp"
	}
	p := svc.Spec.Ports[0]
	if p.AppProtocol != nil && *p.AppProtocol != "" {
		return strings.ToLower(*p.AppProtocol)
	}
	for _, prefix := range []string{"grpc", "http"} {
		if p.Name == prefix || strings.HasPrefix(p.Name, prefix+"-") {
			return prefix
		}
	}
	return strings.ToLower(string(p.Protocol))
}
