package admincmd

import (
	"strings"
	"testing"

	orchestration "github.com/Vioneyy/AI-VTuber-demo/core"
	"github.com/Vioneyy/AI-VTuber-demo/core/safety"
)

type fakeController struct {
	cleared     int
	gateChanges map[orchestration.Source]bool
}

func (f *fakeController) ClearQueue() (int, error) {
	f.cleared++
	return 3, nil
}

func (f *fakeController) SetSourceEnabled(source orchestration.Source, enabled bool) error {
	if f.gateChanges == nil {
		f.gateChanges = map[orchestration.Source]bool{}
	}
	f.gateChanges[source] = enabled
	return nil
}

func (f *fakeController) Status() orchestration.Status {
	return orchestration.Status{
		Running: true,
		Queue:   orchestration.QueueStatus{Size: 2, MaxSize: 50, AdminSize: 1},
		Pipeline: orchestration.PipelineStatus{
			Stage:     orchestration.StagePlaying,
			Completed: 7,
			Aborted:   1,
		},
		Connections: []orchestration.ConnectionStatus{
			{Link: "avatar", State: orchestration.ConnectionConnected},
		},
	}
}

func TestIsCommandDetectsPrefix(t *testing.T) {
	handler := NewHandler(&fakeController{})

	if !handler.IsCommand("!clear") {
		t.Fatalf("expected !clear recognized as a command")
	}
	if !handler.IsCommand("  !status  ") {
		t.Fatalf("expected surrounding whitespace tolerated")
	}
	if handler.IsCommand("hello everyone") {
		t.Fatalf("expected plain chat not recognized as a command")
	}
}

func TestClearCommandReportsDroppedCount(t *testing.T) {
	controller := &fakeController{}
	handler := NewHandler(controller)

	response, err := handler.Execute("!clear")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if controller.cleared != 1 {
		t.Fatalf("expected one clear call, got %d", controller.cleared)
	}
	if !strings.Contains(response, "3") {
		t.Fatalf("expected dropped count in response, got %q", response)
	}
}

func TestMuteAndUnmuteToggleSourceGate(t *testing.T) {
	controller := &fakeController{}
	handler := NewHandler(controller)

	if _, err := handler.Execute("!mute live-chat"); err != nil {
		t.Fatalf("unexpected mute error: %v", err)
	}
	if enabled, ok := controller.gateChanges[orchestration.SourceLiveChat]; !ok || enabled {
		t.Fatalf("expected live-chat disabled, got %v", controller.gateChanges)
	}

	if _, err := handler.Execute("!unmute live-chat"); err != nil {
		t.Fatalf("unexpected unmute error: %v", err)
	}
	if enabled := controller.gateChanges[orchestration.SourceLiveChat]; !enabled {
		t.Fatalf("expected live-chat re-enabled")
	}
}

func TestMuteRequiresKnownSource(t *testing.T) {
	handler := NewHandler(&fakeController{})

	if _, err := handler.Execute("!mute telepathy"); err == nil {
		t.Fatalf("expected unknown source rejected")
	}
	if _, err := handler.Execute("!mute"); err == nil {
		t.Fatalf("expected missing argument rejected")
	}
}

func TestStatusCommandSummarizesState(t *testing.T) {
	handler := NewHandler(&fakeController{})

	response, err := handler.Execute("!status")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	for _, fragment := range []string{"2/50", "playing", "avatar connected"} {
		if !strings.Contains(response, fragment) {
			t.Fatalf("expected %q in status response, got %q", fragment, response)
		}
	}
}

func TestUnknownCommandIsAnError(t *testing.T) {
	handler := NewHandler(&fakeController{})

	if _, err := handler.Execute("!teleport"); err == nil {
		t.Fatalf("expected unknown command rejected")
	}
}

type fakeApprovals struct {
	resolved map[string]bool
	pending  []safety.PendingApproval
}

func (f *fakeApprovals) Resolve(id string, approved bool) bool {
	for _, p := range f.pending {
		if p.ID == id {
			if f.resolved == nil {
				f.resolved = map[string]bool{}
			}
			f.resolved[id] = approved
			return true
		}
	}
	return false
}

func (f *fakeApprovals) Pending() []safety.PendingApproval { return f.pending }

func TestApproveAndRejectResolveHeldReplies(t *testing.T) {
	approvals := &fakeApprovals{pending: []safety.PendingApproval{
		{ID: "held-1", Text: "spicy take"},
		{ID: "held-2", Text: "spicier take"},
	}}
	handler := NewHandler(&fakeController{}, WithApprovals(approvals))

	response, err := handler.Execute("!approve held-1")
	if err != nil {
		t.Fatalf("unexpected approve error: %v", err)
	}
	if !strings.Contains(response, "held-1") {
		t.Fatalf("expected the resolved id echoed, got %q", response)
	}
	if approved, ok := approvals.resolved["held-1"]; !ok || !approved {
		t.Fatalf("expected held-1 approved, got %v", approvals.resolved)
	}

	if _, err := handler.Execute("!reject held-2"); err != nil {
		t.Fatalf("unexpected reject error: %v", err)
	}
	if approved := approvals.resolved["held-2"]; approved {
		t.Fatalf("expected held-2 rejected")
	}
}

func TestApproveUnknownIDIsAnError(t *testing.T) {
	handler := NewHandler(&fakeController{}, WithApprovals(&fakeApprovals{}))

	if _, err := handler.Execute("!approve ghost"); err == nil {
		t.Fatalf("expected unknown approval id rejected")
	}
	if _, err := handler.Execute("!approve"); err == nil {
		t.Fatalf("expected missing argument rejected")
	}
}

func TestApproveWithoutRegistryIsAnError(t *testing.T) {
	handler := NewHandler(&fakeController{})

	if _, err := handler.Execute("!approve held-1"); err == nil {
		t.Fatalf("expected approve rejected when approvals are not configured")
	}
}

func TestPendingListsHeldReplies(t *testing.T) {
	approvals := &fakeApprovals{pending: []safety.PendingApproval{
		{ID: "held-1", Text: "spicy take"},
	}}
	handler := NewHandler(&fakeController{}, WithApprovals(approvals))

	response, err := handler.Execute("!pending")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(response, "held-1") || !strings.Contains(response, "spicy take") {
		t.Fatalf("expected id and text listed, got %q", response)
	}

	approvals.pending = nil
	response, err = handler.Execute("!pending")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !strings.Contains(response, "no replies") {
		t.Fatalf("expected an empty listing message, got %q", response)
	}
}
