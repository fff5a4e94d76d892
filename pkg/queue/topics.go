package queue

// 主题命名规范：tf.<域>.<动作>[.<状态>].
const (
	// TopicUserLoadRequested 请求抓取并分析某个用户的时间线.
	TopicUserLoadRequested = "tf.user.load.requested"
	// TopicUserLoaded 用户分析完成（状态记录已写入 done）.
	TopicUserLoaded = "tf.user.loaded"
	// TopicUserLoadFailed 用户分析失败（状态记录已写入 error）.
	TopicUserLoadFailed = "tf.user.load.failed"
)
