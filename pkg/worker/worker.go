package worker

import "github.com/kettleby/slate/pkg/logger"

var workerLogger = logger.Get("Worker")

type WorkerWakeupChan chan int

type WorkerStatus int

const (
	SLEEPING WorkerStatus = iota
	WORKING
	FINISHED
)

// Task is the unit of work executed by a worker. The boolean return
// indicates whether any work was actually performed; a worker whose task
// reports no work goes to sleep until woken (or until its wakeup channel
// is closed, which stops the worker).
type Task func(w Worker) (bool, error)

type Worker interface {
	Start()
	Status() WorkerStatus
	WakeupChan() WorkerWakeupChan
	Label() string
	Sleep() bool
	Close()
}

type taskWorker struct {
	label         string
	task          Task
	wakeupChan    WorkerWakeupChan
	currentStatus WorkerStatus
}

func NewWorker(label string, task Task) *taskWorker {
	return &taskWorker{
		label:         label,
		task:          task,
		wakeupChan:    make(WorkerWakeupChan),
		currentStatus: SLEEPING,
	}
}

// Start runs the workers task in a loop until the task reports that no
// work remains AND the worker fails to sleep (i.e. its wakeup channel
// has been closed). Task errors are logged but do not stop the worker.
func (worker *taskWorker) Start() {
	worker.currentStatus = WORKING
	for {
		worked, err := worker.task(worker)
		if err != nil {
			workerLogger.Emit(logger.ERROR, "Worker '%s' task reported an error: %v\n", worker.label, err)
		}

		if !worked {
			if !worker.Sleep() {
				return
			}
		}
	}
}

func (worker *taskWorker) Status() WorkerStatus {
	return worker.currentStatus
}

func (worker *taskWorker) WakeupChan() WorkerWakeupChan {
	return worker.wakeupChan
}

func (worker *taskWorker) Label() string {
	return worker.label
}

// Close closes the Worker by closing the WakeupChan. Note that this does
// not interrupt a task that is currently running.
func (worker *taskWorker) Close() {
	close(worker.wakeupChan)
}

// Sleep puts a worker to sleep until its wakeupChan is signalled from
// another goroutine. Returns a boolean that is 'false' if the wakeup
// channel was closed - indicating the worker should quit.
func (worker *taskWorker) Sleep() (isAlive bool) {
	worker.currentStatus = SLEEPING

	if _, isAlive = <-worker.wakeupChan; isAlive {
		worker.currentStatus = WORKING
	} else {
		worker.currentStatus = FINISHED
	}

	return isAlive
}
