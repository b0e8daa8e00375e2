package processor

import (
	"testing"
	"time"
)

func day(d int) time.Time {
	return time.Date(2020, 1, d, 0, 0, 0, 0, time.UTC)
}

func orbit(d int) Scene {
	return Scene{DateFrom: day(d), DateTo: day(d).Add(time.Hour)}
}

func TestSelectScenePair(t *testing.T) {
	scenes := []Scene{orbit(5), orbit(20), orbit(2), orbit(10)}

	retained := FilterScenes(scenes, day(1), day(13))
	if len(retained) != 3 {
		t.Errorf("filter test failed, expecting 3 scenes, actual %d", len(retained))
	}
	for i, d := range []int{2, 5, 10} {
		if !retained[i].DateFrom.Equal(day(d)) {
			t.Errorf("filter test failed, expecting Jan %d at position %d, actual %v", d, i, retained[i].DateFrom)
		}
	}

	pair := SelectScenePair(scenes, day(1), day(13))
	if pair == nil {
		t.Fatalf("selection test failed, expecting a pair")
	}
	if !pair.Pre.DateFrom.Equal(day(2)) {
		t.Errorf("selection test failed, expecting pre scene Jan 2, actual %v", pair.Pre.DateFrom)
	}
	if !pair.Post.DateFrom.Equal(day(10)) {
		t.Errorf("selection test failed, expecting post scene Jan 10, actual %v", pair.Post.DateFrom)
	}
}

func TestSelectScenePairInsufficient(t *testing.T) {
	pair := SelectScenePair([]Scene{orbit(2), orbit(20)}, day(1), day(13))
	if pair != nil {
		t.Errorf("single scene in window should signal insufficient data, actual %v", pair)
	}

	pair = SelectScenePair(nil, day(1), day(13))
	if pair != nil {
		t.Errorf("empty catalog should signal insufficient data, actual %v", pair)
	}
}

func TestFilterScenesPartialOverlap(t *testing.T) {
	// a pass straddling the window end is not retained
	straddling := Scene{DateFrom: day(12), DateTo: day(14)}
	retained := FilterScenes([]Scene{orbit(2), straddling}, day(1), day(13))
	if len(retained) != 1 {
		t.Errorf("straddling scene should be filtered out, actual %d scenes", len(retained))
	}
}
