// Package watch implements the watch stream driver: it opens a Kubernetes
// watch against an arbitrary resource kind via the dynamic client, and
// translates raw watch events into the Added/Modified/Deleted/Restarted/
// Error taxonomy the UI consumes.
package watch

import (
	"context"
	"fmt"
	"log/slog"

	apierrors "k8s.io/apimachinery/pkg/api/errors"
	metav1 "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/apis/meta/v1/unstructured"
	"k8s.io/apimachinery/pkg/watch"

	"github.com/deskkube/clustercore/internal/classify"
	"github.com/deskkube/clustercore/internal/eventsink"
	"github.com/deskkube/clustercore/internal/events"
	"github.com/deskkube/clustercore/internal/k8s"
	"github.com/deskkube/clustercore/internal/pkg/redact"
	"github.com/deskkube/clustercore/internal/registry"
)

// Summary is the UI-facing projection of a watched object; every resource
// kind is reduced to this common shape regardless of its actual schema.
type Summary struct {
	APIVersion string            `json:"api_version"`
	Kind       string            `json:"kind"`
	Name       string            `json:"name"`
	Namespace  string            `json:"namespace,omitempty"`
	UID        string            `json:"uid"`
	Labels     map[string]string `json:"labels,omitempty"`
	Created    string            `json:"created_at,omitempty"`
}

func summarize(obj *unstructured.Unstructured) Summary {
	if redact.IsSecretKind(obj.GetKind()) {
		redact.SecretData(obj.Object)
	}
	return Summary{
		APIVersion: obj.GetAPIVersion(),
		Kind:       obj.GetKind(),
		Name:       obj.GetName(),
		Namespace:  obj.GetNamespace(),
		UID:        string(obj.GetUID()),
		Labels:     obj.GetLabels(),
		Created:    obj.GetCreationTimestamp().Format("2006-01-02T15:04:05Z07:00"),
	}
}

// Start opens a watch for resourceKind (optionally scoped to namespace) and
// streams translated events to sink under channel "watch-<id>" until the
// registry entry is stopped or the watch ends. It registers itself with
// reg and removes itself on every exit path.
func Start(ctx context.Context, client *k8s.Client, reg *registry.Registry, sink eventsink.Sink, id, resourceKind, namespace string) error {
	gvr, err := client.ResolveGVR(ctx, resourceKind)
	if err != nil {
		return classify.Classify(err)
	}

	var ri interface {
		Watch(ctx context.Context, opts metav1.ListOptions) (watch.Interface, error)
		List(ctx context.Context, opts metav1.ListOptions) (*unstructured.UnstructuredList, error)
	}
	if namespace != "" {
		ri = client.Dynamic.Resource(gvr).Namespace(namespace)
	} else {
		ri = client.Dynamic.Resource(gvr)
	}

	list, err := ri.List(ctx, metav1.ListOptions{})
	if err != nil {
		return classify.Classify(err)
	}

	channel := events.ChannelKey("watch", id)
	entry := registry.NewEntry(id, registry.KindWatch, map[string]string{
		"resource_kind": resourceKind,
		"namespace":     namespace,
	})
	reg.Add(entry)

	for i := range list.Items {
		eventsink.Emit(sink, channel, events.WatchAdded, summarize(&list.Items[i]))
	}

	// The watch loop outlives this request; it runs on a context scoped to
	// the session's own stop signal, not the request that started it.
	streamCtx, cancel := registry.DetachedContext(entry)
	go runLoop(streamCtx, entry, reg, ri, list.GetResourceVersion(), sink, channel, cancel)
	return nil
}

type watcherFactory interface {
	Watch(ctx context.Context, opts metav1.ListOptions) (watch.Interface, error)
}

// runLoop owns the watch for the lifetime of the registry entry. When the
// upstream result channel closes (bookmark expiry, apiserver restart), it
// re-opens the watch from the last observed resourceVersion and emits
// Restarted, rather than ending the session — the client-go watch
// primitive itself has no built-in resume, so the driver performs it.
func runLoop(ctx context.Context, entry *registry.Entry, reg *registry.Registry, ri watcherFactory, resourceVersion string, sink eventsink.Sink, channel string, cancel context.CancelFunc) {
	defer cancel()
	defer reg.Remove(entry.ID)

	for {
		watcher, err := ri.Watch(ctx, metav1.ListOptions{ResourceVersion: resourceVersion})
		if err != nil {
			eventsink.Emit(sink, channel, events.WatchError, classify.Classify(err))
			return
		}

		closed := drain(ctx, entry, watcher, sink, channel, &resourceVersion)
		watcher.Stop()
		if !closed {
			return
		}
		eventsink.Emit(sink, channel, events.WatchRestarted, nil)
	}
}

// drain consumes one watch's result channel until it closes (returns true,
// so the caller restarts) or the session is stopped (returns false).
func drain(ctx context.Context, entry *registry.Entry, watcher watch.Interface, sink eventsink.Sink, channel string, resourceVersion *string) bool {
	for {
		select {
		case <-ctx.Done():
			return false
		case <-entry.Stopped():
			return false
		case ev, ok := <-watcher.ResultChan():
			if !ok {
				return true
			}
			if obj, ok := ev.Object.(*unstructured.Unstructured); ok && ev.Type != watch.Error {
				*resourceVersion = obj.GetResourceVersion()
			}
			handleEvent(ev, sink, channel)
		}
	}
}

func handleEvent(ev watch.Event, sink eventsink.Sink, channel string) {
	switch ev.Type {
	case watch.Added:
		if obj, ok := ev.Object.(*unstructured.Unstructured); ok {
			eventsink.Emit(sink, channel, events.WatchAdded, summarize(obj))
		}
	case watch.Modified:
		if obj, ok := ev.Object.(*unstructured.Unstructured); ok {
			eventsink.Emit(sink, channel, events.WatchModified, summarize(obj))
		}
	case watch.Deleted:
		if obj, ok := ev.Object.(*unstructured.Unstructured); ok {
			eventsink.Emit(sink, channel, events.WatchDeleted, summarize(obj))
		}
	case watch.Error:
		var err error
		if status, ok := ev.Object.(*metav1.Status); ok {
			err = &apierrors.StatusError{ErrStatus: *status}
		} else {
			err = fmt.Errorf("watch error: %v", ev.Object)
		}
		eventsink.Emit(sink, channel, events.WatchError, classify.Classify(err))
	default:
		slog.Debug("watch: unhandled event type", "type", ev.Type)
	}
}
