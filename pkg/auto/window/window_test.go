package window

import "testing"

var sample = []Info{
	{PID: 10, Title: "Notepad", Process: "notepad"},
	{PID: 20, Title: "RuneLite - zezima", Process: "java"},
	{PID: 30, Title: "RuneLite", Process: "RuneLite"},
	{PID: 40, Title: "Launcher", Process: "runelite-launcher"},
}

func TestPickWindow(t *testing.T) {
	tests := []struct {
		title   string
		wantPID int
	}{
		{"RuneLite", 30},
		{"runelite", 30},
		{"zezima", 20},
		{"launcher", 40},
		{"notepad", 10},
		{"steam", 0},
	}
	for _, tt := range tests {
		w := pickWindow(sample, tt.title)
		if tt.wantPID == 0 {
			if w != nil {
				t.Errorf("pickWindow(%q) = PID %d, 期望未找到", tt.title, w.PID)
			}
			continue
		}
		if w == nil || w.PID != tt.wantPID {
			t.Errorf("pickWindow(%q) = %+v, 期望 PID %d", tt.title, w, tt.wantPID)
		}
	}
}

func TestFilterWindows(t *testing.T) {
	if got := filterWindows(sample, ""); len(got) != len(sample) {
		t.Errorf("空过滤条件应返回全部, 得到 %d", len(got))
	}
	got := filterWindows(sample, "RUNELITE")
	if len(got) != 3 {
		t.Fatalf("过滤结果 = %d 个, 期望 3", len(got))
	}
	for _, w := range got {
		if w.PID == 10 {
			t.Errorf("不应包含 Notepad")
		}
	}
}

func TestProcessNameOfMissingPID(t *testing.T) {
	if name := processName(-1); name != "" {
		t.Errorf("不存在的进程名应为空, 得到 %q", name)
	}
}
