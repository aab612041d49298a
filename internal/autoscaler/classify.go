package autoscaler

// Classify maps an alarm state change to its edge transition.
//
// The categories are asymmetric on INSUFFICIENT_DATA: a high alarm treats
// missing data as benign, a low alarm treats it as alarm-like.
func Classify(category AlarmCategory, previous, current AlarmState) Transition {
	switch category {
	case CategoryHigh:
		if previous == StateAlarm && (current == StateOK || current == StateInsufficientData) {
			return TransitionAlarmToOK
		}
		if (previous == StateOK || previous == StateInsufficientData) && current == StateAlarm {
			return TransitionOKToAlarm
		}
	case CategoryLow:
		if (previous == StateAlarm || previous == StateInsufficientData) && current == StateOK {
			return TransitionAlarmToOK
		}
		if previous == StateOK && (current == StateAlarm || current == StateInsufficientData) {
			return TransitionOKToAlarm
		}
	}
	return TransitionNone
}

// IsAlarmLike reports whether a live state should drive scaling for the category.
func IsAlarmLike(category AlarmCategory, state AlarmState) bool {
	if state == StateAlarm {
		return true
	}
	return category == CategoryLow && state == StateInsufficientData
}
