package processor

import (
	"sort"
	"time"
)

// FilterScenes retains the scenes fully contained in the
// analysis window [fromDate, toDate], sorted ascending by
// acquisition start.
func FilterScenes(scenes []Scene, fromDate, toDate time.Time) []Scene {
	var retained []Scene
	for _, scene := range scenes {
		if scene.DateFrom.Before(fromDate) || scene.DateTo.After(toDate) {
			continue
		}
		retained = append(retained, scene)
	}

	sort.Slice(retained, func(i, j int) bool {
		return retained[i].DateFrom.Before(retained[j].DateFrom)
	})
	return retained
}

// SelectScenePair reduces a scene collection to the earliest
// (pre-fire) and latest (post-fire) scenes inside the analysis
// window. Fewer than two candidate scenes is the insufficient
// data signal and returns nil; callers must not evaluate pixels
// in that case.
func SelectScenePair(scenes []Scene, fromDate, toDate time.Time) *ScenePair {
	retained := FilterScenes(scenes, fromDate, toDate)
	if len(retained) < 2 {
		return nil
	}
	return &ScenePair{Pre: retained[0], Post: retained[len(retained)-1]}
}
