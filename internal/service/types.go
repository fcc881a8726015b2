package service

// Project is a remote container that to-do lists are created in.
// ListContainerID is the backend's id for the project's to-do set; backends
// without such a level leave it empty.
type Project struct {
	ID              string
	Name            string
	Description     string
	ListContainerID string
}

// Chat is a project chat room.
type Chat struct {
	ID    string
	Title string
}

// ListRef identifies a created to-do list.
type ListRef struct {
	ID   string
	Name string
}

// GroupRef identifies a created group inside a list.
type GroupRef struct {
	ID     string
	ListID string
	Name   string
}

// ItemRef identifies a created to-do.
type ItemRef struct {
	ID      string
	Content string
}
