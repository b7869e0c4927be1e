package tasks

// DefineTasks registers all available tasks
func DefineTasks() {
	RegisterHandler(LogInfoTask.TaskID(), LogInfoTask.HandleExecution)
	RegisterHandler(ReconcilePolicyTask.TaskID(), ReconcilePolicyTask.HandleExecution)
	RegisterHandler(ReconcileAllPoliciesTask.TaskID(), ReconcileAllPoliciesTask.HandleExecution)
}
