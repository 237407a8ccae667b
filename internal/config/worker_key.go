package config

type WorkerKeyStruct struct {
	ProctorEventsQueue string
	NotificationsQueue string
}

var WorkerKey = &WorkerKeyStruct{
	ProctorEventsQueue: "persist_proctor_events_queue",
	NotificationsQueue: "result_notifications_queue",
}
