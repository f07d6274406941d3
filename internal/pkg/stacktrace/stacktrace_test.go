package stacktrace

import "testing"

func TestInternalPaths(t *testing.T) {
	// Arrange
	stack := []byte("goroutine 7 [running]:\n" +
		"runtime/debug.Stack()\n" +
		"\t/usr/local/go/src/runtime/debug/stack.go:26 +0x5e\n" +
		"github.com/shandysiswandi/estatebite/internal/media/usecase.(*Usecase).UploadBuffered(...)\n" +
		"\t/app/internal/media/usecase/upload.go:88 +0x1d\n" +
		"github.com/shandysiswandi/estatebite/internal/pkg/router.(*Router).endpoint.func1(...)\n" +
		"\t/app/internal/pkg/router/router.go:190\n")

	// Act
	paths := InternalPaths(stack)

	// Assert
	want := []string{"internal/media/usecase/upload.go:88", "internal/pkg/router/router.go:190"}
	if len(paths) != len(want) {
		t.Fatalf("expected %v, got %v", want, paths)
	}
	for i := range want {
		if paths[i] != want[i] {
			t.Fatalf("frame %d: expected %q, got %q", i, want[i], paths[i])
		}
	}
}

func TestInternalPaths_NoInternalFrames(t *testing.T) {
	if paths := InternalPaths([]byte("goroutine 1 [running]:\nmain.main()\n\t/usr/src/main.go:5 +0x1\n")); len(paths) != 0 {
		t.Fatalf("expected no frames, got %v", paths)
	}
}
